package coverfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.senan.xyz/coverfetch/cover"
	"go.senan.xyz/coverfetch/coverimage"
	"go.senan.xyz/coverfetch/coverparse"
	"go.senan.xyz/coverfetch/mediatags"
	"go.senan.xyz/coverfetch/notifications"
	"go.senan.xyz/coverfetch/researchlink"
	"go.senan.xyz/coverfetch/storage"
	"go.senan.xyz/coverfetch/tageditor"
)

var (
	ErrNothingToSearch  = errors.New("nothing to search for")
	ErrCoverExists      = errors.New("folder already has a cover")
	ErrNoTracks         = errors.New("no tracks in dir")
	ErrUnknownWriteMode = errors.New("unknown write mode")
)

type WriteMode string

const (
	WriteNone   WriteMode = "none"
	WriteFolder WriteMode = "folder"
	WriteTag    WriteMode = "tag"
)

func ParseWriteMode(s string) (WriteMode, error) {
	switch m := WriteMode(s); m {
	case WriteNone, WriteFolder, WriteTag:
		return m, nil
	case "":
		return WriteNone, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownWriteMode, s)
}

// Fetcher finds covers and puts them where they were asked for.
type Fetcher struct {
	Engine cover.Engine
	Fs     afero.Fs

	// Tree is written through when direct writes are denied, may be nil.
	Tree         *storage.Tree
	CoverName    string
	CoverUpgrade bool
	JPEGQuality  int
	MaxWidth     int

	// TagEditor receives covers staged under CacheDir, may be nil.
	TagEditor tageditor.Editor
	CacheDir  string

	Notifications *notifications.Notifications
	ResearchLinks *researchlink.Builder
}

// Fetch finds a cover for q. Anything that isn't a readable image counts as not found.
func (f *Fetcher) Fetch(ctx context.Context, q cover.Query) (*cover.Cover, coverimage.Info, error) {
	if q.IsZero() {
		return nil, coverimage.Info{}, ErrNothingToSearch
	}

	cov, err := f.Engine.GetCover(ctx, q)
	if err == nil {
		var info coverimage.Info
		if info, err = coverimage.Describe(cov.Data); err == nil {
			f.Notifications.Sendf(ctx, notifications.CoverFound, "found cover for %s (%s)", describeQuery(q), info)
			return cov, info, nil
		}
		err = fmt.Errorf("%w: %w", cover.ErrCoverNotFound, err)
	}
	if !errors.Is(err, cover.ErrCoverNotFound) {
		// network or server trouble is still reported as not found, but logged as is
		slog.WarnContext(ctx, "fetching cover", "query", describeQuery(q), "err", err)
		err = fmt.Errorf("%w: %w", cover.ErrCoverNotFound, err)
	}

	f.Notifications.Sendf(ctx, notifications.CoverNotFound, "no cover found for %s", describeQuery(q))
	f.logResearchLinks(ctx, q)
	return nil, coverimage.Info{}, err
}

// WriteFolder saves data as a JPEG cover in the directory of mediaPath and returns
// where it was written.
func (f *Fetcher) WriteFolder(ctx context.Context, mediaPath string, data []byte) (string, error) {
	target, err := storage.FolderTarget(f.Fs, mediaPath, f.CoverName)
	if err != nil {
		return "", f.writeErr(ctx, err)
	}

	if !f.CoverUpgrade {
		existing, err := coverparse.Find(f.Fs, filepath.Dir(target))
		if err != nil {
			return "", f.writeErr(ctx, fmt.Errorf("find existing cover: %w", err))
		}
		if existing != "" {
			return existing, fmt.Errorf("%w: %s", ErrCoverExists, existing)
		}
	}

	jpeg, err := coverimage.ToJPEG(data, f.MaxWidth, f.JPEGQuality)
	if err != nil {
		return "", f.writeErr(ctx, err)
	}

	w := storage.Writer{Direct: f.Fs, Tree: f.Tree}
	method, err := w.Write(target, jpeg)
	if err != nil {
		return "", f.writeErr(ctx, err)
	}

	slog.InfoContext(ctx, "wrote cover", "path", target, "method", method)
	f.Notifications.Sendf(ctx, notifications.CoverWritten, "wrote cover to %s", target)
	return target, nil
}

// SendToTagEditor stages data and hands it to the tag editor to embed in mediaPath.
func (f *Fetcher) SendToTagEditor(ctx context.Context, mediaPath string, data []byte) (string, error) {
	if f.TagEditor == nil {
		return "", f.writeErr(ctx, tageditor.ErrNotInstalled)
	}
	path, err := tageditor.Handoff(ctx, f.TagEditor, f.Fs, f.CacheDir, data, mediaPath)
	if err != nil {
		return "", f.writeErr(ctx, err)
	}
	f.sentToTagEditor(ctx, mediaPath, path)
	return path, nil
}

// SendStaged hands a cover already kept with Stage to the tag editor. The staged file is
// left in place.
func (f *Fetcher) SendStaged(ctx context.Context, mediaPath, coverPath string) error {
	if f.TagEditor == nil {
		return f.writeErr(ctx, tageditor.ErrNotInstalled)
	}
	if err := tageditor.Send(ctx, f.TagEditor, mediaPath, coverPath); err != nil {
		return f.writeErr(ctx, err)
	}
	f.sentToTagEditor(ctx, mediaPath, coverPath)
	return nil
}

func (f *Fetcher) sentToTagEditor(ctx context.Context, mediaPath, coverPath string) {
	slog.InfoContext(ctx, "sent cover to tag editor", "media", mediaPath, "cover", coverPath)
	f.Notifications.Sendf(ctx, notifications.CoverWritten, "sent cover for %s to the tag editor", mediaPath)
}

// Stage keeps data in the cache directory as a PNG, for players to show.
func (f *Fetcher) Stage(data []byte) (string, error) {
	pngData, err := coverimage.ToPNG(data, f.MaxWidth)
	if err != nil {
		return "", err
	}
	return tageditor.Stage(f.Fs, f.CacheDir, pngData)
}

// Put writes data as mode asks and returns where it ended up.
func (f *Fetcher) Put(ctx context.Context, mode WriteMode, mediaPath string, data []byte) (string, error) {
	switch mode {
	case WriteFolder:
		return f.WriteFolder(ctx, mediaPath, data)
	case WriteTag:
		return f.SendToTagEditor(ctx, mediaPath, data)
	}
	return "", nil
}

// ReadArt reads an image file, or the cover embedded in a media file.
func (f *Fetcher) ReadArt(path string) ([]byte, coverimage.Info, error) {
	data, err := afero.ReadFile(f.Fs, path)
	if err != nil {
		return nil, coverimage.Info{}, fmt.Errorf("read file: %w", err)
	}
	if info, err := coverimage.Describe(data); err == nil {
		return data, info, nil
	}

	data, _, err = mediatags.ReadCover(path)
	if err != nil {
		return nil, coverimage.Info{}, err
	}
	info, err := coverimage.Describe(data)
	if err != nil {
		return nil, coverimage.Info{}, err
	}
	return data, info, nil
}

func (f *Fetcher) writeErr(ctx context.Context, err error) error {
	f.Notifications.Sendf(ctx, notifications.WriteError, "error writing cover: %v", err)
	return err
}

func (f *Fetcher) logResearchLinks(ctx context.Context, q cover.Query) {
	if f.ResearchLinks == nil {
		return
	}
	links, err := f.ResearchLinks.Build(researchlink.Query{Artist: q.Artist, Album: q.Album, Track: q.Track})
	if err != nil {
		slog.WarnContext(ctx, "build research links", "err", err)
	}
	for _, l := range links {
		slog.InfoContext(ctx, "search manually", "name", l.Name, "url", l.URL)
	}
}

// QueryFile reads a query from the tags of the media file at path. For a directory, the
// first track in it that has tags is used.
func QueryFile(fsys afero.Fs, path string) (cover.Query, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return cover.Query{}, fmt.Errorf("stat: %w", err)
	}
	if !info.IsDir() {
		return queryFile(path)
	}

	paths, err := afero.Glob(fsys, filepath.Join(path, "*"))
	if err != nil {
		return cover.Query{}, fmt.Errorf("glob dir: %w", err)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if coverparse.IsCover(p) {
			continue
		}
		q, err := queryFile(p)
		if err != nil {
			continue
		}
		return q, nil
	}
	return cover.Query{}, fmt.Errorf("%w: %s", ErrNoTracks, path)
}

func queryFile(path string) (cover.Query, error) {
	tq, err := mediatags.ReadQuery(path)
	if err != nil {
		return cover.Query{}, err
	}
	return cover.Query{
		Artist:         tq.Artist,
		Album:          tq.Album,
		Track:          tq.Title,
		ReleaseGroupID: tq.ReleaseGroupID,
	}, nil
}

func describeQuery(q cover.Query) string {
	if q.Raw != "" {
		return fmt.Sprintf("%q", q.Raw)
	}
	var parts []string
	for _, p := range []string{q.Artist, q.Album, q.Track} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return q.ReleaseGroupID
	}
	return strings.Join(parts, " - ")
}
