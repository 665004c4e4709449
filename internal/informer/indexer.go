// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package informer

import (
	"fmt"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// IndexFunc computes the secondary index values of an object.
type IndexFunc func(obj *unstructured.Unstructured) ([]string, error)

// Indexers maps index names to their index functions.
type Indexers map[string]IndexFunc

// index maps an indexed value to the set of object keys carrying it.
type index map[string]map[string]struct{}

// NestedFieldIndexFunc builds an IndexFunc over a dotted field path such as
// "spec.environment". Objects missing the field yield no index entry.
func NestedFieldIndexFunc(fieldPath string) IndexFunc {
	var path = strings.Split(fieldPath, ".")
	return func(obj *unstructured.Unstructured) ([]string, error) {
		value, ok, err := unstructured.NestedString(obj.Object, path...)
		if err != nil || !ok {
			return nil, err
		}
		return []string{value}, nil
	}
}

// Indexer is the keyed snapshot of the latest known object per key, plus
// secondary indices. It is written exclusively by the informer's pop loop
// and read concurrently by everyone else.
type Indexer struct {
	lock     sync.RWMutex
	items    map[string]*unstructured.Unstructured
	indexers Indexers
	indices  map[string]index
}

func NewIndexer(indexers Indexers) *Indexer {
	if indexers == nil {
		indexers = Indexers{}
	}
	var indices = make(map[string]index, len(indexers))
	for name := range indexers {
		indices[name] = index{}
	}
	return &Indexer{
		items:    make(map[string]*unstructured.Unstructured),
		indexers: indexers,
		indices:  indices,
	}
}

// Update stores the latest state of a key, maintaining all secondary indices
// atomically with the primary map entry.
func (i *Indexer) Update(key string, obj *unstructured.Unstructured) {
	i.lock.Lock()
	defer i.lock.Unlock()

	old := i.items[key]
	i.items[key] = obj
	i.updateIndices(key, old, obj)
}

func (i *Indexer) Delete(key string) {
	i.lock.Lock()
	defer i.lock.Unlock()

	old, ok := i.items[key]
	if !ok {
		return
	}
	delete(i.items, key)
	i.updateIndices(key, old, nil)
}

func (i *Indexer) GetByKey(key string) (*unstructured.Unstructured, bool) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	obj, ok := i.items[key]
	return obj, ok
}

func (i *Indexer) ListKeys() []string {
	i.lock.RLock()
	defer i.lock.RUnlock()
	var keys = make([]string, 0, len(i.items))
	for key := range i.items {
		keys = append(keys, key)
	}
	return keys
}

func (i *Indexer) List() []*unstructured.Unstructured {
	i.lock.RLock()
	defer i.lock.RUnlock()
	var objects = make([]*unstructured.Unstructured, 0, len(i.items))
	for _, obj := range i.items {
		objects = append(objects, obj)
	}
	return objects
}

func (i *Indexer) Len() int {
	i.lock.RLock()
	defer i.lock.RUnlock()
	return len(i.items)
}

// ByIndex returns all objects whose index function produced the given value.
func (i *Indexer) ByIndex(indexName string, value string) ([]*unstructured.Unstructured, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()

	idx, ok := i.indices[indexName]
	if !ok {
		return nil, fmt.Errorf("index %q does not exist", indexName)
	}

	var objects = make([]*unstructured.Unstructured, 0, len(idx[value]))
	for key := range idx[value] {
		objects = append(objects, i.items[key])
	}
	return objects, nil
}

// IndexKeys returns the keys of all objects carrying the given index value.
func (i *Indexer) IndexKeys(indexName string, value string) ([]string, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()

	idx, ok := i.indices[indexName]
	if !ok {
		return nil, fmt.Errorf("index %q does not exist", indexName)
	}

	var keys = make([]string, 0, len(idx[value]))
	for key := range idx[value] {
		keys = append(keys, key)
	}
	return keys, nil
}

// updateIndices must be called with the write lock held. Either old or new
// may be nil.
func (i *Indexer) updateIndices(key string, old *unstructured.Unstructured, new *unstructured.Unstructured) {
	for name, indexFunc := range i.indexers {
		idx := i.indices[name]

		if old != nil {
			values, _ := indexFunc(old)
			for _, value := range values {
				delete(idx[value], key)
				if len(idx[value]) == 0 {
					delete(idx, value)
				}
			}
		}

		if new != nil {
			values, _ := indexFunc(new)
			for _, value := range values {
				set, ok := idx[value]
				if !ok {
					set = make(map[string]struct{})
					idx[value] = set
				}
				set[key] = struct{}{}
			}
		}
	}
}
