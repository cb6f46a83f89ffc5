package content

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/alnahda/portal/internal/cache"
	"github.com/alnahda/portal/internal/model"
	"github.com/alnahda/portal/internal/util"
)

// NewsRepository serves the portal's news section from a directory of
// markdown files. A filesystem watcher replaces polling: any write in
// the directory triggers a reload and, for changed posts, the notifier.
type NewsRepository struct {
	newsPath string

	newsCache  *cache.Cache[string, *model.NewsPost]
	sortedMu   sync.RWMutex
	newsSorted []model.NewsPost

	reloadNotifier func(model.NewsID)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewNewsRepository(newsPath string) *NewsRepository {
	return &NewsRepository{
		newsPath:  newsPath,
		newsCache: cache.NewCache[string, *model.NewsPost](),
		done:      make(chan struct{}),
	}
}

func (r *NewsRepository) Init() error {
	posts, postMap, err := r.loadPosts()
	if err != nil {
		return err
	}

	r.setSorted(posts)
	r.newsCache.SetTo(postMap)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.newsPath); err != nil {
		watcher.Close()
		return err
	}
	r.watcher = watcher

	go r.watch()
	return nil
}

func (r *NewsRepository) Close() error {
	close(r.done)
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

func (r *NewsRepository) SetReloadNotifier(notifier func(model.NewsID)) {
	r.reloadNotifier = notifier
}

func (r *NewsRepository) setSorted(posts []model.NewsPost) {
	r.sortedMu.Lock()
	defer r.sortedMu.Unlock()
	r.newsSorted = posts
}

// GetNewsList returns all posts, newest first.
func (r *NewsRepository) GetNewsList() []model.NewsPost {
	r.sortedMu.RLock()
	defer r.sortedMu.RUnlock()
	return r.newsSorted
}

func (r *NewsRepository) ReadNews(id model.NewsID) (*model.NewsPost, error) {
	if post, ok := r.newsCache.Get(string(id)); ok && post.Markdown != nil {
		return post, nil
	}
	return nil, os.ErrNotExist
}

func (r *NewsRepository) loadPosts() ([]model.NewsPost, map[string]*model.NewsPost, error) {
	entries, err := os.ReadDir(r.newsPath)
	if err != nil {
		return nil, nil, err
	}

	var posts []model.NewsPost
	postMap := make(map[string]*model.NewsPost)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")

		mdContent, err := os.ReadFile(filepath.Join(r.newsPath, entry.Name()))
		if err != nil {
			return nil, nil, err
		}

		fileInfo, err := entry.Info()
		if err != nil {
			return nil, nil, err
		}

		post := model.NewsPost{
			ID:            model.NewsID(util.ContentHashString(name)),
			Title:         name,
			Path:          name,
			Markdown:      mdContent,
			MDContentHash: util.ContentHash(mdContent),
			ModifiedDate:  fileInfo.ModTime(),
		}

		if info, err := util.GetFrontMatter(mdContent); err == nil {
			post.Info = info
		}

		posts = append(posts, post)
		postMap[string(post.ID)] = &post
	}

	slices.SortStableFunc(posts, func(a, b model.NewsPost) int {
		return -a.ModifiedDate.Compare(b.ModifiedDate)
	})

	return posts, postMap, nil
}

func (r *NewsRepository) watch() {
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			r.reload()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			contentLogger.Error().Err(err).Msg("News watcher error")
		}
	}
}

func (r *NewsRepository) reload() {
	posts, postMap, err := r.loadPosts()
	if err != nil {
		contentLogger.Error().Err(err).Msg("Error reloading news posts")
		return
	}

	for _, old := range r.GetNewsList() {
		if fresh, ok := postMap[string(old.ID)]; ok {
			if fresh.MDContentHash != old.MDContentHash {
				contentLogger.Info().
					Str("news_id", string(old.ID)).
					Str("title", old.Title).
					Msg("Reloading news post")
				if r.reloadNotifier != nil {
					go r.reloadNotifier(old.ID)
				}
			}
		}
	}

	r.setSorted(posts)
	r.newsCache.SetTo(postMap)
}
