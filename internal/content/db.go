package content

import (
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alnahda/portal/internal/cache"
	"github.com/alnahda/portal/internal/config"
	"github.com/alnahda/portal/internal/db"
	"github.com/alnahda/portal/internal/model"
	"github.com/alnahda/portal/internal/util"
	"github.com/alnahda/portal/internal/util/compression"
)

type DBRepository struct { // implements Repository
	elementsCache  *cache.Cache[string, *model.PageElement]
	elementsSorted []model.PageElement
	sortedMu       sync.RWMutex

	reloadNotifier   func(pageKey, elementKey string)
	lastModifiedTime *time.Time // Track the latest modification time

	db         db.DB
	compressor compression.Compressor
}

func NewDBRepository(db db.DB) *DBRepository {
	return &DBRepository{
		elementsCache: cache.NewCache[string, *model.PageElement](),

		db: db,

		compressor: compression.ZstdCompressor{},
	}
}

func (r *DBRepository) Init() error {
	elements, elementMap, err := r.GetElements()
	if err != nil {
		return fmt.Errorf("error initializing page elements: %w", err)
	}

	r.setSorted(elements)
	r.elementsCache.SetTo(elementMap)

	go r.reloadLoop()
	return nil
}

func (r *DBRepository) setSorted(elements []model.PageElement) {
	r.sortedMu.Lock()
	defer r.sortedMu.Unlock()
	r.elementsSorted = elements
}

func (r *DBRepository) getSorted() []model.PageElement {
	r.sortedMu.RLock()
	defer r.sortedMu.RUnlock()
	return r.elementsSorted
}

func (r *DBRepository) GetLatestModifiedTime() (*time.Time, error) {
	var latestTimeStr sql.NullString
	row := r.db.Get().QueryRow(`SELECT MAX(modified_at) FROM page_elements`)
	err := row.Scan(&latestTimeStr)
	if err != nil {
		return nil, fmt.Errorf("error scanning latest modified time: %w", err)
	}

	if !latestTimeStr.Valid {
		return nil, nil // It was NULL, so no elements or no valid timestamps.
	}

	// The go-sqlite3 driver returns a string for MAX(), so we must parse it.
	// It can be in a format with a space separator.
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00", // Space separator with timezone
		time.RFC3339Nano,                      // 'T' separator with timezone
		time.RFC3339,                          // 'T' separator, no nanos
	}

	var latestTime time.Time
	var parseErr error
	for _, format := range timeFormats {
		latestTime, parseErr = time.Parse(format, latestTimeStr.String)
		if parseErr == nil {
			return &latestTime, nil
		}
	}

	return nil, fmt.Errorf("error parsing latest modified time '%s' with any known format: %w", latestTimeStr.String, parseErr)
}

func (r *DBRepository) GetElements() ([]model.PageElement, map[string]*model.PageElement, error) {
	rows, err := r.db.Query(`SELECT page_key, element_key, content_ar, content_en, element_type, content_hash, modified_at FROM page_elements`)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying page elements: %w", err)
	}
	defer rows.Close()

	elements := make([]model.PageElement, 0)
	elementMap := make(map[string]*model.PageElement)
	var latestModTime *time.Time

	for rows.Next() {
		var el model.PageElement
		var compressedAr, compressedEn []byte

		err := rows.Scan(&el.PageKey, &el.ElementKey, &compressedAr, &compressedEn, &el.ElementType, &el.ContentHash, &el.ModifiedDate)
		if err != nil {
			return nil, nil, fmt.Errorf("error scanning page element: %w", err)
		}

		// Track the latest modification time
		if latestModTime == nil || el.ModifiedDate.After(*latestModTime) {
			latestModTime = &el.ModifiedDate
		}

		contentAr, err := r.compressor.Decompress(compressedAr)
		if err != nil {
			return nil, nil, fmt.Errorf("error decompressing arabic content: %w", err)
		}
		contentEn, err := r.compressor.Decompress(compressedEn)
		if err != nil {
			return nil, nil, fmt.Errorf("error decompressing english content: %w", err)
		}
		el.ContentAr = string(contentAr)
		el.ContentEn = string(contentEn)

		elements = append(elements, el)
		elementMap[model.ElementKeyOf(el.PageKey, el.ElementKey)] = &el
	}

	r.lastModifiedTime = latestModTime

	slices.SortStableFunc(elements, func(a, b model.PageElement) int {
		return -a.ModifiedDate.Compare(b.ModifiedDate)
	})

	return elements, elementMap, nil
}

func (r *DBRepository) GetElement(pageKey, elementKey string) (*model.PageElement, error) {
	el, ok := r.elementsCache.Get(model.ElementKeyOf(pageKey, elementKey))
	if !ok {
		return nil, fmt.Errorf("page element not found: %s", model.ElementKeyOf(pageKey, elementKey))
	}
	return el, nil
}

func (r *DBRepository) PageElements(pageKey string) []model.PageElement {
	var out []model.PageElement
	for _, el := range r.getSorted() {
		if el.PageKey == pageKey {
			out = append(out, el)
		}
	}
	return out
}

func (r *DBRepository) reloadLoop() {
	interval := time.Duration(config.AppConfig.Content.ReloadIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	sleepFunc := func() {
		time.Sleep(interval)
	}

	for {
		// First, do a lightweight check to see if anything has changed
		latestTime, err := r.GetLatestModifiedTime()
		if err != nil {
			contentLogger.Error().Err(err).Msg("Error checking latest modification time")
			sleepFunc()
			continue
		}

		// If we have a cached time and nothing has changed, skip
		if r.lastModifiedTime != nil && latestTime != nil && !latestTime.After(*r.lastModifiedTime) {
			contentLogger.Debug().Msg("No page elements modified, skipping reload")
			sleepFunc()
			continue
		}

		contentLogger.Debug().Msg("Page elements may have changed, performing full reload")

		elements, elementMap, err := r.GetElements()
		if err != nil {
			contentLogger.Error().Err(err).Msg("Error reloading page elements")
			sleepFunc()
			continue
		}

		// Compare content hashes to detect changed elements
		cached := make(map[string]*model.PageElement)
		for i := range r.getSorted() {
			el := r.getSorted()[i]
			cached[model.ElementKeyOf(el.PageKey, el.ElementKey)] = &el
		}

		hasChanges := len(elements) != len(cached)
		for _, newEl := range elements {
			key := model.ElementKeyOf(newEl.PageKey, newEl.ElementKey)
			if oldEl, exists := cached[key]; exists {
				if newEl.ContentHash != oldEl.ContentHash {
					hasChanges = true
					contentLogger.Info().
						Str("page_key", newEl.PageKey).
						Str("element_key", newEl.ElementKey).
						Msg("Page element changed, reloading")
					if r.reloadNotifier != nil {
						go r.reloadNotifier(newEl.PageKey, newEl.ElementKey)
					}
				}
			} else {
				hasChanges = true
				contentLogger.Info().
					Str("page_key", newEl.PageKey).
					Str("element_key", newEl.ElementKey).
					Msg("New page element detected")
			}
		}

		if hasChanges {
			contentLogger.Info().Msg("Page elements changed, updating cache")
			r.setSorted(elements)
			r.elementsCache.SetTo(elementMap)
		}

		sleepFunc()
	}
}

func (r *DBRepository) SetReloadNotifier(notifier func(pageKey, elementKey string)) {
	r.reloadNotifier = notifier
}

func (r *DBRepository) SaveElement(el *model.PageElement) error {
	compressedAr, err := r.compressor.Compress([]byte(el.ContentAr))
	if err != nil {
		return fmt.Errorf("error compressing arabic content: %w", err)
	}
	compressedEn, err := r.compressor.Compress([]byte(el.ContentEn))
	if err != nil {
		return fmt.Errorf("error compressing english content: %w", err)
	}

	el.ContentHash = util.ContentHash(append(compressedAr, compressedEn...))
	el.ModifiedDate = time.Now().UTC()

	res, err := r.db.Exec(
		`INSERT INTO page_elements (page_key, element_key, content_ar, content_en, element_type, content_hash, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(page_key, element_key) DO UPDATE SET
		   content_ar = excluded.content_ar,
		   content_en = excluded.content_en,
		   element_type = excluded.element_type,
		   content_hash = excluded.content_hash,
		   modified_at = excluded.modified_at`,
		el.PageKey, el.ElementKey, compressedAr, compressedEn, el.ElementType, el.ContentHash, el.ModifiedDate,
	)
	if err != nil {
		return fmt.Errorf("error saving page element: %w", err)
	}

	contentLogger.Debug().Interface("result", res).Msg("Page element saved")

	// Keep the in-process cache coherent without waiting for the next
	// reload tick.
	elCopy := *el
	r.elementsCache.Set(model.ElementKeyOf(el.PageKey, el.ElementKey), &elCopy)

	return nil
}
