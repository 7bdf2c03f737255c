package cache

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/udayj/dex-aggregator/internal/types"
)

// FileStore keeps the path map and pool snapshot as JSON files in a working
// directory. Writes go to a temp file first and are renamed into place, so a
// concurrent reader never observes a torn snapshot.
type FileStore struct {
	dir         string
	pathMapFile string
	poolMapFile string
}

func NewFileStore(dir, pathMapFile, poolMapFile string) *FileStore {
	return &FileStore{
		dir:         dir,
		pathMapFile: pathMapFile,
		poolMapFile: poolMapFile,
	}
}

func (fs *FileStore) WritePathMap(ctx context.Context, pathMap types.PathMap) error {
	data, err := marshalPathMap(pathMap)
	if err != nil {
		return fmt.Errorf("failed to marshal path map: %w", err)
	}
	return fs.writeAtomic(fs.pathMapFile, data)
}

func (fs *FileStore) ReadPathMap(ctx context.Context) (types.PathMap, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, fs.pathMapFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path map %s: %w", fs.pathMapFile, ErrStoreMissing)
		}
		return nil, err
	}
	return unmarshalPathMap(data)
}

func (fs *FileStore) WritePoolMap(ctx context.Context, poolMap types.PoolMap, blockNumber uint64) error {
	stamped := poolMap.Clone()
	for _, pool := range stamped {
		pool.BlockNumber = blockNumber
	}
	data, err := marshalPoolMap(stamped)
	if err != nil {
		return fmt.Errorf("failed to marshal pool map: %w", err)
	}
	return fs.writeAtomic(fs.poolMapFile, data)
}

func (fs *FileStore) ReadPoolMap(ctx context.Context) (types.PoolMap, uint64, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, fs.poolMapFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("pool map %s: %w", fs.poolMapFile, ErrStoreMissing)
		}
		return nil, 0, err
	}
	poolMap, err := unmarshalPoolMap(data)
	if err != nil {
		return nil, 0, err
	}

	// Every pool carries the snapshot's block; any entry yields it
	var blockNumber uint64
	for _, pool := range poolMap {
		blockNumber = pool.BlockNumber
		break
	}
	return poolMap, blockNumber, nil
}

func (fs *FileStore) writeAtomic(name string, data []byte) error {
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create working dir %s: %w", fs.dir, err)
	}

	target := filepath.Join(fs.dir, name)
	tmp, err := os.CreateTemp(fs.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// WritePairRecords persists factory pair records, one comma-separated
// `pair,token0,token1` line per pool.
func (fs *FileStore) WritePairRecords(name string, pairs []types.PairRecord) error {
	var sb strings.Builder
	for _, pair := range pairs {
		sb.WriteString(pair.Address)
		sb.WriteString(",")
		sb.WriteString(pair.Token0)
		sb.WriteString(",")
		sb.WriteString(pair.Token1)
		sb.WriteString("\n")
	}
	return fs.writeAtomic(name, []byte(sb.String()))
}

// ReadPairRecords reads pair records written by WritePairRecords, skipping
// malformed lines.
func (fs *FileStore) ReadPairRecords(name string) ([]types.PairRecord, error) {
	file, err := os.Open(filepath.Join(fs.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pair records %s: %w", name, ErrStoreMissing)
		}
		return nil, err
	}
	defer file.Close()

	var pairs []types.PairRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ",")
		if len(parts) < 3 {
			continue
		}
		pairs = append(pairs, types.PairRecord{
			Address: strings.TrimSpace(parts[0]),
			Token0:  strings.TrimSpace(parts[1]),
			Token1:  strings.TrimSpace(parts[2]),
		})
	}
	return pairs, scanner.Err()
}

// WriteTokenPaths writes one space-separated token path per line, shortest
// first. This is the per-token text format the path pipeline produces before
// aggregation.
func (fs *FileStore) WriteTokenPaths(name string, paths map[string][]types.TokenPath) error {
	var lines []string
	for _, pathList := range paths {
		sorted := make([]types.TokenPath, len(pathList))
		copy(sorted, pathList)
		sort.SliceStable(sorted, func(i, j int) bool {
			return len(sorted[i]) < len(sorted[j])
		})
		for _, path := range sorted {
			lines = append(lines, strings.Join(path, " "))
		}
	}
	return fs.writeAtomic(name, []byte(strings.Join(lines, "\n")+"\n"))
}

// ReadTokenPaths parses a per-token path file back into a path map keyed by
// each line's first and last token.
func (fs *FileStore) ReadTokenPaths(name string) (types.PathMap, error) {
	file, err := os.Open(filepath.Join(fs.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("token paths %s: %w", name, ErrStoreMissing)
		}
		return nil, err
	}
	defer file.Close()

	pathMap := make(types.PathMap)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) < 2 {
			continue
		}
		key := types.PathKey{From: tokens[0], To: tokens[len(tokens)-1]}
		pathMap[key] = append(pathMap[key], tokens)
	}
	return pathMap, scanner.Err()
}
