package storemap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/gholt/brimutil"
	"github.com/spaolacci/murmur3"

	"github.com/gholt/theo2012/value"
)

// record ops for the append-only log.
const (
	opPut byte = iota
	opRemove
)

// FileStore is a disk-backed StoreMap: an append-only log of put/remove
// records, replayed in order on Open to rebuild the in-memory index,
// grounded on gholt-valuestore's recovery() scan of *.valuestoc files in
// valuesstore.go and the checksummed record framing of
// valuestorefile_GEN_.go. Each record is
// [4-byte big-endian length][payload], written through a murmur3
// checksummed writer, where payload is
// [op byte][4-byte big-endian key length][key bytes][value.List encoding]
// (the value encoding is present for puts only).
type FileStore struct {
	mu         sync.RWMutex
	path       string
	fp         *os.File
	m          map[string][]value.Value
	readOnly   bool
	generation uint64
	checksumInterval int
}

// NewFileStore returns a FileStore that will persist to path on Open.
func NewFileStore() *FileStore {
	return &FileStore{m: make(map[string][]value.Value), checksumInterval: 65536}
}

func (s *FileStore) Open(location string, readOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = location
	s.readOnly = readOnly
	if s.m == nil {
		s.m = make(map[string][]value.Value)
	}
	if err := s.replay(); err != nil {
		return fmt.Errorf("replay %s: %w", location, err)
	}
	flags := os.O_CREATE | os.O_RDWR | os.O_APPEND
	if readOnly {
		flags = os.O_RDONLY
	}
	fp, err := os.OpenFile(location, flags, 0644)
	if err != nil {
		return err
	}
	s.fp = fp
	return nil
}

func (s *FileStore) replay() error {
	fp, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer fp.Close()
	r := brimutil.NewChecksummedReader(fp, s.checksumInterval, murmur3.New32)
	br := bufio.NewReader(r)
	for {
		var lenBuf [4]byte
		if _, err := readFull(br, lenBuf[:]); err != nil {
			break
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := readFull(br, payload); err != nil {
			break
		}
		if err := s.applyRecord(payload); err != nil {
			return err
		}
	}
	return nil
}

func readFull(br *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := br.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *FileStore) applyRecord(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty record")
	}
	op := payload[0]
	rest := payload[1:]
	keyLen := binary.BigEndian.Uint32(rest)
	rest = rest[4:]
	key := string(rest[:keyLen])
	rest = rest[keyLen:]
	switch op {
	case opPut:
		listVal, _, err := value.ParseValue(rest)
		if err != nil {
			return err
		}
		vs, _ := listVal.AsList()
		s.m[key] = vs
	case opRemove:
		delete(s.m, key)
	default:
		return fmt.Errorf("unknown record op %d", op)
	}
	return nil
}

func (s *FileStore) appendRecord(op byte, key string, values []value.Value) error {
	var payload []byte
	payload = append(payload, op)
	keyLen := make([]byte, 4)
	binary.BigEndian.PutUint32(keyLen, uint32(len(key)))
	payload = append(payload, keyLen...)
	payload = append(payload, key...)
	if op == opPut {
		payload = append(payload, value.ToBytes(value.List(values))...)
	}
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	w := brimutil.NewChecksummedWriter(s.fp, s.checksumInterval, murmur3.New32)
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return w.Close()
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fp == nil {
		return nil
	}
	err := s.fp.Close()
	s.fp = nil
	return err
}

func (s *FileStore) Flush(sync bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fp == nil {
		return nil
	}
	if sync {
		return s.fp.Sync()
	}
	return nil
}

func (s *FileStore) Copy(location string) (StoreMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst, err := os.Create(location)
	if err != nil {
		return nil, err
	}
	defer dst.Close()
	if _, err := dst.ReadFrom(src); err != nil {
		return nil, err
	}
	cp := NewFileStore()
	if err := cp.Open(location, s.readOnly); err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *FileStore) IsReadOnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readOnly
}

func (s *FileStore) Get(key string) ([]value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs, ok := s.m[key]
	return vs, ok
}

func (s *FileStore) Put(key string, values []value.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return fmt.Errorf("store is read-only")
	}
	if err := s.appendRecord(opPut, key, values); err != nil {
		return err
	}
	if _, existed := s.m[key]; !existed {
		s.generation++
	}
	s.m[key] = values
	return nil
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return fmt.Errorf("store is read-only")
	}
	if _, existed := s.m[key]; !existed {
		return nil
	}
	if err := s.appendRecord(opRemove, key, nil); err != nil {
		return err
	}
	delete(s.m, key)
	s.generation++
	return nil
}

func (s *FileStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *FileStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}

func (s *FileStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Open is a convenience constructor used by cmd/theokb: location "/" gets
// a MemStore, anything else a FileStore.
func Open(location string, readOnly bool) (StoreMap, error) {
	var sm StoreMap
	if location == "/" {
		sm = NewMemStore()
	} else {
		sm = NewFileStore()
	}
	if err := sm.Open(location, readOnly); err != nil {
		return nil, err
	}
	return sm, nil
}
