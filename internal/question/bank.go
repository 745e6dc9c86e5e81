package question

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Bank holds question definitions by id.
//
// A bank file looks like:
//
//	questions:
//	  - id: capital-fr
//	    type: short_word
//	    points: 2
//	    answer_key: [Paris]
type Bank struct {
	mu   sync.RWMutex
	defs map[string]Definition
	opts []Option
}

type bankFile struct {
	Questions []Definition `yaml:"questions"`
}

func NewBank(opts ...Option) *Bank {
	return &Bank{defs: map[string]Definition{}, opts: opts}
}

// LoadBankFile reads a YAML bank from path.
func LoadBankFile(path string, opts ...Option) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()
	return LoadBank(f, opts...)
}

func LoadBank(r io.Reader, opts ...Option) (*Bank, error) {
	var bf bankFile
	if err := yaml.NewDecoder(r).Decode(&bf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	b := NewBank(opts...)
	for _, d := range bf.Questions {
		if err := b.Put(d); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Put validates and stores a definition, replacing any with the same id.
func (b *Bank) Put(d Definition) error {
	if d.ID == "" {
		return errors.New("question definition without id")
	}
	if _, err := Build(d, b.opts...); err != nil {
		return fmt.Errorf("question %s: %w", d.ID, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defs[d.ID] = d
	return nil
}

func (b *Bank) Definition(id string) (Definition, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// Get returns the gradable question for id.
func (b *Bank) Get(id string) (Question, error) {
	d, err := b.Definition(id)
	if err != nil {
		return nil, err
	}
	return Build(d, b.opts...)
}

func (b *Bank) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.defs))
	for id := range b.defs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
