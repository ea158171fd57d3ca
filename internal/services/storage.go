package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"

	bolt "go.etcd.io/bbolt"
)

const (
	optionsBucket  = "project_options"
	metadataBucket = "metadata"
	savedAtSuffix  = "saved_at"
)

type optionStore struct {
	db     *bolt.DB
	config *common.StorageConfig
}

// NewOptionStore opens the bbolt-backed per-project option store.
func NewOptionStore(config *common.StorageConfig) (interfaces.OptionStore, error) {
	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if config.BackupDir != "" {
		if err := os.MkdirAll(config.BackupDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	db, err := bolt.Open(config.DatabasePath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(optionsBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metadataBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &optionStore{
		db:     db,
		config: config,
	}, nil
}

func (s *optionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *optionStore) SaveOptions(projectKey string, opts *models.StoredOptions) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(opts)
		if err != nil {
			return fmt.Errorf("failed to marshal options for %s: %w", projectKey, err)
		}

		if err := tx.Bucket([]byte(optionsBucket)).Put([]byte(projectKey), data); err != nil {
			return fmt.Errorf("failed to save options for %s: %w", projectKey, err)
		}

		metaKey := []byte(fmt.Sprintf("%s:%s", projectKey, savedAtSuffix))
		savedAt, _ := time.Now().MarshalBinary()
		return tx.Bucket([]byte(metadataBucket)).Put(metaKey, savedAt)
	})
}

func (s *optionStore) LoadOptions(projectKey string) (*models.StoredOptions, error) {
	var opts *models.StoredOptions

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(optionsBucket)).Get([]byte(projectKey))
		if data == nil {
			return nil
		}

		var loaded models.StoredOptions
		if err := json.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("failed to unmarshal options for %s: %w", projectKey, err)
		}
		opts = &loaded
		return nil
	})

	return opts, err
}

func (s *optionStore) DeleteOptions(projectKey string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(optionsBucket)).Delete([]byte(projectKey)); err != nil {
			return fmt.Errorf("failed to delete options for %s: %w", projectKey, err)
		}
		metaKey := []byte(fmt.Sprintf("%s:%s", projectKey, savedAtSuffix))
		return tx.Bucket([]byte(metadataBucket)).Delete(metaKey)
	})
}

func (s *optionStore) ListProjects() ([]string, error) {
	projects := make([]string, 0)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(optionsBucket)).ForEach(func(k, v []byte) error {
			projects = append(projects, string(k))
			return nil
		})
	})

	return projects, err
}
