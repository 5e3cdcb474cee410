// Package snapshot dumps and restores the controller's memory store.
package snapshot

import (
	"bufio"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"hivectl.ai/internal/memory"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
	Records int    `json:"records"`
}

type Record struct {
	Namespace string
	Key       string
	Data      []byte
}

type SnapshotV1 struct {
	Header  Header
	Records []Record
}

// Dump copies every record of every namespace, ordered by namespace then key.
func Dump(ctx context.Context, store memory.Store, tick uint64) (SnapshotV1, error) {
	snap := SnapshotV1{Header: Header{Version: Version, Tick: tick}}
	for _, ns := range memory.Namespaces {
		keys, err := store.Keys(ctx, ns)
		if err != nil {
			return snap, fmt.Errorf("keys %s: %w", ns, err)
		}
		for _, k := range keys {
			data, ok, err := store.Get(ctx, ns, k)
			if err != nil {
				return snap, fmt.Errorf("get %s/%s: %w", ns, k, err)
			}
			if !ok {
				continue
			}
			snap.Records = append(snap.Records, Record{Namespace: string(ns), Key: k, Data: data})
		}
	}
	snap.Header.Records = len(snap.Records)
	return snap, nil
}

// Restore replaces the contents of store with the snapshot's records.
func Restore(ctx context.Context, store memory.Store, snap SnapshotV1) error {
	if snap.Header.Version != Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	for _, ns := range memory.Namespaces {
		keys, err := store.Keys(ctx, ns)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := store.Delete(ctx, ns, k); err != nil {
				return err
			}
		}
	}
	for _, r := range snap.Records {
		if err := store.Set(ctx, memory.Namespace(r.Namespace), r.Key, r.Data); err != nil {
			return fmt.Errorf("set %s/%s: %w", r.Namespace, r.Key, err)
		}
	}
	return nil
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Write beside the target and rename so readers never see a partial file.
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := errors.Join(bw.Flush(), enc.Close()); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
