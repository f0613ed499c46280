package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/narwhalmedia/mediaresolver/pkg/client"
)

// ItemRecord is one row of an items file.
type ItemRecord struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ItemsFile is a JSON array of items that doubles as the image sink for
// preload: resolved URLs are written back to the file.
type ItemsFile struct {
	path  string
	mu    sync.Mutex
	items []ItemRecord
	index map[int64]int
	dirty bool
}

// OpenItemsFile loads path.
func OpenItemsFile(path string) (*ItemsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}
	var items []ItemRecord
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to parse items file %s: %w", path, err)
	}

	f := &ItemsFile{path: path, items: items, index: make(map[int64]int, len(items))}
	for i, item := range items {
		f.index[item.ID] = i
	}
	return f, nil
}

// Items returns a copy of every row.
func (f *ItemsFile) Items() []ItemRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ItemRecord(nil), f.items...)
}

// Pending lists the rows that have no image yet.
func (f *ItemsFile) Pending() []client.Item {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending := make([]client.Item, 0, len(f.items))
	for _, item := range f.items {
		if item.ImageURL == "" {
			pending = append(pending, client.Item{ID: item.ID, Title: item.Title, Type: item.Type})
		}
	}
	return pending
}

// SaveImage records imageURL for id. The file is rewritten on Flush.
func (f *ItemsFile) SaveImage(_ context.Context, id int64, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.index[id]
	if !ok {
		return fmt.Errorf("item %d is not in %s", id, f.path)
	}
	if f.items[i].ImageURL != imageURL {
		f.items[i].ImageURL = imageURL
		f.dirty = true
	}
	return nil
}

// Flush rewrites the file when SaveImage changed anything since the last
// flush.
func (f *ItemsFile) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirty {
		return nil
	}
	raw, err := json.MarshalIndent(f.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items file: %w", err)
	}
	if err := writeFileAtomic(f.path, raw); err != nil {
		return err
	}
	f.dirty = false
	return nil
}
