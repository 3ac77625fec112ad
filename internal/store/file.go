package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/justicebus/offlinesync/internal/filex"
)

// FileStore is the fallback storage tier: one JSON file per partition in a
// data directory. It keeps the Store contract (upserts, insertion order,
// idempotent deletes) but offers no transactional guarantees beyond
// atomic whole-file writes. A mutex serializes access within the process.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

type fileRecord struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type filePartition struct {
	NextSeq int64        `json:"nextSeq"`
	Records []fileRecord `json:"records"`
}

// NewFileStore creates the data directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, unavailable("open file store", err)
	}
	return &FileStore{dir: abs}, nil
}

func (s *FileStore) Put(ctx context.Context, partition, key string, value []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(partition)
	if err != nil {
		return "", err
	}

	if key == "" {
		p.NextSeq++
		key = strconv.FormatInt(p.NextSeq, 10)
	}

	replaced := false
	for i := range p.Records {
		if p.Records[i].Key == key {
			p.Records[i].Value = value
			replaced = true
			break
		}
	}
	if !replaced {
		p.Records = append(p.Records, fileRecord{Key: key, Value: value})
	}

	if err := s.save(partition, p); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FileStore) Get(ctx context.Context, partition, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(partition)
	if err != nil {
		return nil, err
	}
	for _, r := range p.Records {
		if r.Key == key {
			return r.Value, nil
		}
	}
	return nil, nil
}

func (s *FileStore) GetAll(ctx context.Context, partition string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(partition)
	if err != nil {
		return nil, err
	}
	result := make([]Record, 0, len(p.Records))
	for _, r := range p.Records {
		result = append(result, Record{Key: r.Key, Value: r.Value})
	}
	return result, nil
}

func (s *FileStore) Delete(ctx context.Context, partition, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(partition)
	if err != nil {
		return err
	}
	for i, r := range p.Records {
		if r.Key == key {
			p.Records = append(p.Records[:i], p.Records[i+1:]...)
			return s.save(partition, p)
		}
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(partition string) string {
	return filepath.Join(s.dir, partition+".json")
}

func (s *FileStore) load(partition string) (*filePartition, error) {
	data, err := os.ReadFile(s.path(partition))
	if os.IsNotExist(err) {
		return &filePartition{}, nil
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("read partition %s", partition), err)
	}
	var p filePartition
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, unavailable(fmt.Sprintf("decode partition %s", partition), err)
	}
	return &p, nil
}

func (s *FileStore) save(partition string, p *filePartition) error {
	data, err := json.Marshal(p)
	if err != nil {
		return unavailable(fmt.Sprintf("encode partition %s", partition), err)
	}
	if err := filex.WriteAtomic(s.path(partition), data); err != nil {
		return unavailable(fmt.Sprintf("write partition %s", partition), err)
	}
	return nil
}
