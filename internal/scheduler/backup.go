package scheduler

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/store"
)

const backupTimeout = 5 * time.Minute

// S3BackupJob archives the databases into a tar.gz and uploads it to S3.
// Each database is checkpointed first so the copied file is consistent.
type S3BackupJob struct {
	bucket    string
	dataDir   string
	databases []*store.DB
	uploader  *manager.Uploader
	log       zerolog.Logger
}

// backupMetadata is written alongside the database copies inside the archive.
type backupMetadata struct {
	Timestamp time.Time        `json:"timestamp"`
	Databases []databaseBackup `json:"databases"`
}

type databaseBackup struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// NewS3BackupJob builds the S3 client from the ambient AWS configuration
// (environment, shared config, instance role).
func NewS3BackupJob(ctx context.Context, bucket, dataDir string, databases []*store.DB, log zerolog.Logger) (*S3BackupJob, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3BackupJob{
		bucket:    bucket,
		dataDir:   dataDir,
		databases: databases,
		uploader:  manager.NewUploader(s3.NewFromConfig(awsCfg)),
		log:       log.With().Str("job", "s3_backup").Logger(),
	}, nil
}

// Name returns the job name
func (j *S3BackupJob) Name() string { return "s3_backup" }

// Run executes the backup job
func (j *S3BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	start := time.Now()
	j.log.Info().Str("bucket", j.bucket).Msg("Starting S3 backup")

	stagingDir, err := os.MkdirTemp(j.dataDir, "backup-staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := backupMetadata{
		Timestamp: start.UTC(),
		Databases: make([]databaseBackup, 0, len(j.databases)),
	}

	for _, db := range j.databases {
		entry, err := j.stageDatabase(db, stagingDir)
		if err != nil {
			return err
		}
		metadata.Databases = append(metadata.Databases, entry)
	}

	metadataPath := filepath.Join(stagingDir, "metadata.json")
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}

	archivePath := filepath.Join(stagingDir, "archive.tar.gz")
	files := make([]string, 0, len(metadata.Databases)+1)
	for _, entry := range metadata.Databases {
		files = append(files, filepath.Join(stagingDir, entry.Filename))
	}
	files = append(files, metadataPath)

	if err := createArchive(archivePath, files); err != nil {
		return fmt.Errorf("failed to create backup archive: %w", err)
	}

	key := fmt.Sprintf("backups/volguard-%s.tar.gz", start.UTC().Format("20060102T150405Z"))
	if err := j.upload(ctx, archivePath, key); err != nil {
		return err
	}

	j.log.Info().
		Str("key", key).
		Int("databases", len(metadata.Databases)).
		Dur("duration", time.Since(start)).
		Msg("S3 backup completed")
	return nil
}

// stageDatabase checkpoints the database and copies its file into the
// staging directory, returning the metadata entry.
func (j *S3BackupJob) stageDatabase(db *store.DB, stagingDir string) (databaseBackup, error) {
	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		return databaseBackup{}, fmt.Errorf("failed to checkpoint %s before backup: %w", db.Name(), err)
	}

	filename := db.Name() + ".db"
	dst := filepath.Join(stagingDir, filename)
	checksum, size, err := copyWithChecksum(db.Path(), dst)
	if err != nil {
		return databaseBackup{}, fmt.Errorf("failed to stage %s: %w", db.Name(), err)
	}

	return databaseBackup{
		Name:      db.Name(),
		Filename:  filename,
		SizeBytes: size,
		Checksum:  checksum,
	}, nil
}

func (j *S3BackupJob) upload(ctx context.Context, archivePath, key string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup archive: %w", err)
	}
	defer f.Close()

	_, err = j.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(j.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload backup to s3://%s/%s: %w", j.bucket, key, err)
	}
	return nil
}

func copyWithChecksum(src, dst string) (checksum string, size int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", 0, err
	}
	defer out.Close()

	hash := sha256.New()
	size, err = io.Copy(io.MultiWriter(out, hash), in)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hash.Sum(nil)), size, nil
}

func createArchive(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, path := range files {
		if err := addToArchive(tw, path); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addToArchive(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
