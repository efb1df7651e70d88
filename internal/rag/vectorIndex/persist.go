package vectorIndex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
)

// On-disk layout, little endian throughout:
//
//	magic    [4]byte  "LBVX"
//	version  uint16
//	metric   uint8    (1 = cosine)
//	dim      uint32
//	count    uint64
//	entries  count × { idLen uint16, id [idLen]byte, vector [dim]float32 }
//
// Entries are written in insertion order, so the same index contents always
// produce the same bytes.
var fileMagic = [4]byte{'L', 'B', 'V', 'X'}

const (
	fileVersion  uint16 = 1
	metricCosine byte   = 1
)

// Persist writes the index to path atomically: a temp file in the same
// directory is written, fsynced and renamed over the target, so a crash
// mid-write never leaves a truncated index behind.
func (ix *Index) Persist(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := bufio.NewWriter(tmp)
	if err := ix.encode(w); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing index file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

func (ix *Index) encode(w io.Writer) error {
	if _, err := w.Write(fileMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, fileVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, metricCosine); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(ix.dimension)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(ix.ids))); err != nil {
		return err
	}

	for i, id := range ix.ids {
		if len(id) > int(^uint16(0)) {
			return fmt.Errorf("vector id too long: %d bytes", len(id))
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(id))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, id); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, ix.vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a persisted index from path. A missing, truncated or otherwise
// unreadable file yields ErrIndexUnavailable; the caller decides whether to
// start empty and rebuild or to surface the failure.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", commonModels.ErrIndexUnavailable, path, err)
	}
	defer f.Close()

	ix, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", commonModels.ErrIndexUnavailable, path, err)
	}
	return ix, nil
}

func decode(r io.Reader) (*Index, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if magic != fileMagic {
		return nil, errors.New("bad magic, not an index file")
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}

	var metric byte
	if err := binary.Read(r, binary.LittleEndian, &metric); err != nil {
		return nil, fmt.Errorf("reading metric: %w", err)
	}
	if metric != metricCosine {
		return nil, fmt.Errorf("unsupported metric %d", metric)
	}

	var dim uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("reading dimension: %w", err)
	}
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}

	ix, err := New(int(dim))
	if err != nil {
		return nil, err
	}

	for n := uint64(0); n < count; n++ {
		var idLen uint16
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("entry %d: reading id length: %w", n, err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return nil, fmt.Errorf("entry %d: reading id: %w", n, err)
		}
		vector := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vector); err != nil {
			return nil, fmt.Errorf("entry %d: reading vector: %w", n, err)
		}
		if err := ix.Add(string(idBytes), vector); err != nil {
			return nil, fmt.Errorf("entry %d: %w", n, err)
		}
	}

	// anything after the declared entries means the file is damaged
	var trailing [1]byte
	if _, err := r.Read(trailing[:]); err != io.EOF {
		return nil, errors.New("trailing data after last entry")
	}
	return ix, nil
}
