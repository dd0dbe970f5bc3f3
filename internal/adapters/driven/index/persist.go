package index

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
)

// Names of the files a persistent collection keeps under its
// directory. Bleve manages its own directory; the records and the
// vector graph are saved alongside it on close.
const (
	keywordIndexName = "keyword.bleve"
	recordsFileName  = "records.gob"
	vectorsFileName  = "vectors.hnsw"
)

// collectionState is the part of a collection Bleve does not persist:
// the records themselves and the ID-to-graph-key mapping.
type collectionState[T any] struct {
	Records map[string]T
	IDKeys  map[string]uint64
	NextKey uint64
}

// save writes records and vectors under the collection directory.
// Each file goes through a temp file and rename so a crash mid-save
// leaves the previous state readable. Caller holds the lock.
func (c *Collection[T]) save() error {
	state := collectionState[T]{
		Records: c.records,
		IDKeys:  c.idKeys,
		NextKey: c.nextKey,
	}
	if err := writeGob(filepath.Join(c.path, recordsFileName), state); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	if c.graph.Len() == 0 {
		return nil
	}
	if err := writeGraph(filepath.Join(c.path, vectorsFileName), c.graph); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	return nil
}

// load restores what save wrote. Missing files mean a fresh
// collection, not an error.
func (c *Collection[T]) load() error {
	var state collectionState[T]
	found, err := readGob(filepath.Join(c.path, recordsFileName), &state)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if !found {
		return nil
	}

	c.records = state.Records
	c.idKeys = state.IDKeys
	c.nextKey = state.NextKey
	c.keyIDs = make(map[uint64]string, len(state.IDKeys))
	for id, key := range state.IDKeys {
		c.keyIDs[key] = id
	}

	file, err := os.Open(filepath.Join(c.path, vectorsFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load vectors: %w", err)
	}
	defer file.Close()

	// Import wants an io.ByteReader.
	if err := c.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import vector graph: %w", err)
	}
	return nil
}

func writeGob(path string, state any) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := gob.NewEncoder(file).Encode(state); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func writeGraph(path string, graph *hnsw.Graph[uint64]) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func readGob(path string, state any) (bool, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(state); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}
