package dictionary

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/storage"
)

// Service validates word race answers against per-category word lists and a
// general word list.
type Service struct {
	storage storage.Storage
	logger  *slog.Logger

	mu         sync.RWMutex
	categories map[string]map[string]struct{}
	general    map[string]struct{}
}

// New creates a new dictionary Service
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage:    storage,
		logger:     logger.With(slog.String("component", "dictionary")),
		categories: make(map[string]map[string]struct{}),
		general:    make(map[string]struct{}),
	}
}

// LoadFromStorage loads every stored word list
func (s *Service) LoadFromStorage(ctx context.Context) error {
	cats, err := s.storage.ListDictionaryCategories(ctx)
	if err != nil {
		return err
	}
	for _, cat := range cats {
		words, err := s.storage.GetDictionaryWords(ctx, cat)
		if err != nil {
			return fmt.Errorf("loading %q: %w", cat, err)
		}
		s.loadWords(cat, words)
	}
	return nil
}

// LoadFromDir loads a dictionary directory: categories.json maps category to
// words, and wordlist.txt holds the general list one word per line. Either
// file may be absent. Loaded lists are saved to storage.
func (s *Service) LoadFromDir(ctx context.Context, dir string) error {
	catPath := filepath.Join(dir, "categories.json")
	if data, err := os.ReadFile(catPath); err == nil {
		var byCategory map[string][]string
		if err := json.Unmarshal(data, &byCategory); err != nil {
			return fmt.Errorf("parsing %s: %w", catPath, err)
		}
		for cat, words := range byCategory {
			if err := s.storage.SaveDictionaryWords(ctx, cat, words); err != nil {
				return err
			}
			s.loadWords(cat, words)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	listPath := filepath.Join(dir, "wordlist.txt")
	words, err := readLines(listPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := s.storage.SaveDictionaryWords(ctx, storage.GeneralDictionary, words); err != nil {
		return err
	}
	s.loadWords(storage.GeneralDictionary, words)

	s.logger.Info("dictionary loaded",
		slog.String("dir", dir),
		slog.Int("categories", s.CategoryCount()),
		slog.Int("general_words", s.WordCount()))
	return nil
}

// LoadWords directly loads a word list for a category (useful for testing).
// Use storage.GeneralDictionary for the general list.
func (s *Service) LoadWords(category string, words []string) {
	s.loadWords(category, words)
}

func (s *Service) loadWords(category string, words []string) {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		if n := Normalize(word); n != "" {
			set[n] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if category == storage.GeneralDictionary {
		s.general = set
		return
	}
	s.categories[category] = set
}

// IsValid checks an answer for a category: the category list first, then the
// general list. With no list covering the answer at all, it is accepted.
func (s *Service) IsValid(category, answer string) bool {
	n := Normalize(answer)
	if n == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := s.categories[category]
	if _, ok := allowed[n]; ok {
		return true
	}
	if _, ok := s.general[n]; ok {
		return true
	}
	return len(allowed) == 0 && len(s.general) == 0
}

// Validate checks a batch of submissions, returning the invalid answers
// keyed by player then category.
func (s *Service) Validate(ctx context.Context, submissions map[string]map[string]string) (map[string]map[string]string, error) {
	invalid := make(map[string]map[string]string)
	for player, answers := range submissions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for cat, ans := range answers {
			if ans == "" || s.IsValid(cat, ans) {
				continue
			}
			if invalid[player] == nil {
				invalid[player] = make(map[string]string)
			}
			invalid[player][cat] = ans
		}
	}
	return invalid, nil
}

// IsLoaded returns whether any word list has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.categories) > 0 || len(s.general) > 0
}

// WordCount returns the number of words in the general list
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.general)
}

// CategoryCount returns the number of category lists
func (s *Service) CategoryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.categories)
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Interface check
type ServiceInterface interface {
	IsValid(category, answer string) bool
	Validate(ctx context.Context, submissions map[string]map[string]string) (map[string]map[string]string, error)
	IsLoaded() bool
	WordCount() int
	LoadFromStorage(ctx context.Context) error
	LoadFromDir(ctx context.Context, dir string) error
	LoadWords(category string, words []string)
}

var _ ServiceInterface = (*Service)(nil)

// ErrDictionaryNotLoaded is returned when operations are attempted before loading
var ErrDictionaryNotLoaded = model.ErrDictionaryNotLoaded
