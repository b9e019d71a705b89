// Package dedup классифицирует совпадения на "уже виденные" и "новые".
// Запомненное множество ключей criteriaId:snapshotId целиком замещается
// при каждом пересчёте: исчезнувший ключ вытесняется и при повторном
// появлении снова считается новым.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

// Store — внешнее хранилище запомненного множества, чтобы холодный старт
// не принял все текущие совпадения за новые.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Replace(ctx context.Context, keys []string) error
	Add(ctx context.Context, keys []string) error
}

type Tracker struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	store Store
}

// NewTracker создаёт трекер; store может быть nil (чисто сессионный режим).
func NewTracker(store Store) *Tracker {
	return &Tracker{
		seen:  make(map[string]struct{}),
		store: store,
	}
}

// Restore загружает запомненное множество из хранилища.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	keys, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при восстановлении множества дедупликации: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seen = make(map[string]struct{}, len(keys))
	for _, key := range keys {
		t.seen[key] = struct{}{}
	}

	return nil
}

// Seed помечает совпадения как уже виденные без их возврата.
func (t *Tracker) Seed(matches []models.Match) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range matches {
		t.seen[m.Key()] = struct{}{}
	}
}

// Update замещает запомненное множество текущим и возвращает только
// впервые увиденные совпадения. Повторный вызов с тем же входом
// возвращает пустой список.
func (t *Tracker) Update(ctx context.Context, current []models.Match) ([]models.Match, error) {
	t.mu.Lock()

	var brandNew []models.Match

	next := make(map[string]struct{}, len(current))
	keys := make([]string, 0, len(current))

	for _, m := range current {
		key := m.Key()
		keys = append(keys, key)
		next[key] = struct{}{}

		if _, ok := t.seen[key]; !ok {
			brandNew = append(brandNew, m)
		}
	}

	t.seen = next
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Replace(ctx, keys); err != nil {
			return brandNew, fmt.Errorf("ошибка при сохранении множества дедупликации: %w", err)
		}
	}

	return brandNew, nil
}

// MarkNew — инкрементальный путь серверного движка: возвращает только
// невиданные совпадения и дописывает их ключи, не вытесняя остальные.
// Событие несёт один снапшот, полного пересчёта нет, поэтому вытеснение
// здесь обеспечивает TTL хранилища.
func (t *Tracker) MarkNew(ctx context.Context, current []models.Match) ([]models.Match, error) {
	t.mu.Lock()

	var brandNew []models.Match

	var keys []string

	for _, m := range current {
		key := m.Key()
		if _, ok := t.seen[key]; ok {
			continue
		}

		t.seen[key] = struct{}{}
		keys = append(keys, key)
		brandNew = append(brandNew, m)
	}

	t.mu.Unlock()

	if t.store != nil && len(keys) > 0 {
		if err := t.store.Add(ctx, keys); err != nil {
			return brandNew, fmt.Errorf("ошибка при дозаписи множества дедупликации: %w", err)
		}
	}

	return brandNew, nil
}

// Contains сообщает, числится ли ключ в запомненном множестве.
func (t *Tracker) Contains(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.seen[key]

	return ok
}

// Size — размер запомненного множества.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.seen)
}
