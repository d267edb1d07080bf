package coverflag

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.senan.xyz/coverfetch"
	"go.senan.xyz/coverfetch/cover"
	"go.senan.xyz/coverfetch/musicbrainz"
	"go.senan.xyz/coverfetch/notifications"
	"go.senan.xyz/coverfetch/researchlink"
	"go.senan.xyz/coverfetch/storage"
	"go.senan.xyz/coverfetch/tageditor"
	"go.senan.xyz/flagconf"

	_ "go.senan.xyz/coverfetch/tageditor/flac"
)

func Parse() {
	userConfig, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}

	defaultConfigPath := filepath.Join(userConfig, coverfetch.Name, "config")
	configPath := flag.String("config-path", defaultConfigPath, "Path to config file")

	printVersion := flag.Bool("version", false, "Print the version and exit")
	printConfig := flag.Bool("config", false, "Print the parsed config and exit")

	flag.Parse()
	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string { return coverfetch.Name }
	flagconf.ParseEnv()
	flagconf.ParseConfig(*configPath)

	if *printVersion {
		fmt.Printf("%s %s\n", flag.CommandLine.Name(), coverfetch.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-16s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

const (
	EngineReleaseGroup = "release-group"
	EngineRelease      = "release"
)

type Config struct {
	MusicBrainzClient     musicbrainz.MBClient
	CoverArtArchiveClient musicbrainz.CAAClient

	Engine        string
	Strategy      cover.Strategy
	Size          int
	MinSimilarity float64
	MinScore      int

	CoverName    string
	CoverUpgrade bool
	JPEGQuality  int
	MaxWidth     int

	TagEditor tageditor.Editor
	CacheDir  string
	PrefsPath string
}

func NewConfig() *Config {
	var cfg Config

	userCache, _ := os.UserCacheDir()
	userConfig, _ := os.UserConfigDir()

	flag.StringVar(&cfg.MusicBrainzClient.BaseURL, "mb-base-url", `https://musicbrainz.org/ws/2/`, "MusicBrainz base URL")
	flag.DurationVar(&cfg.MusicBrainzClient.RateLimit, "mb-rate-limit", 1*time.Second, "MusicBrainz rate limit duration")

	flag.StringVar(&cfg.CoverArtArchiveClient.BaseURL, "caa-base-url", `https://coverartarchive.org/`, "CoverArtArchive base URL")
	flag.DurationVar(&cfg.CoverArtArchiveClient.RateLimit, "caa-rate-limit", 0, "CoverArtArchive rate limit duration")

	flag.StringVar(&cfg.Engine, "engine", EngineReleaseGroup, `Where covers are looked up, "release-group" or "release"`)
	flag.Var(&strategyParser{&cfg.Strategy}, "strategy", `How search candidates are tried, "ordered" or "random"`)
	flag.IntVar(&cfg.Size, "size", musicbrainz.Size500, "Cover Art Archive thumbnail size (250, 500, or 1200)")
	flag.Float64Var(&cfg.MinSimilarity, "min-similarity", 0, "Skip release groups less similar than this to the album title (0 to 1, 0 to disable)")
	flag.IntVar(&cfg.MinScore, "min-score", 90, "Skip releases with a lower search score (release engine only)")

	flag.StringVar(&cfg.CoverName, "cover-name", storage.DefaultCoverName, "File name of covers written to album folders")
	flag.BoolVar(&cfg.CoverUpgrade, "cover-upgrade", false, "Write covers even if the folder already has one")
	flag.IntVar(&cfg.JPEGQuality, "jpeg-quality", 90, "Quality of covers written to album folders")
	flag.IntVar(&cfg.MaxWidth, "max-width", 0, "Scale covers down to this width (0 to keep)")

	flag.Var(&tagEditorParser{&cfg.TagEditor}, "tag-editor", `Tag editor to embed covers with, eg "flac" or "subproc metaflac --import-picture-from <cover> <files>"`)
	flag.StringVar(&cfg.CacheDir, "cache-dir", filepath.Join(userCache, coverfetch.Name), "Directory for staged covers")
	flag.StringVar(&cfg.PrefsPath, "prefs-path", filepath.Join(userConfig, coverfetch.Name, "prefs.yaml"), "Path to saved preferences such as the granted tree")

	return &cfg
}

func Notifications() *notifications.Notifications {
	var n notifications.Notifications
	flag.Var(&notificationsParser{&n}, "notification-uri", "Add a shoutrrr notification URI for an event (stackable)")
	return &n
}

func ResearchLinks() *researchlink.Builder {
	var r researchlink.Builder
	flag.Var(&researchLinkParser{&r}, "research-link", "Define a helper URL to search for an album with no cover (stackable)")
	return &r
}

var ErrUnknownEngine = errors.New("unknown engine")

// CoverEngine builds the configured cover engine. The clients are shared, so
// their rate limits hold across engines.
func (cfg *Config) CoverEngine() (cover.Engine, error) {
	cfg.MusicBrainzClient.UserAgent = coverfetch.UserAgent
	cfg.CoverArtArchiveClient.UserAgent = coverfetch.UserAgent

	switch cfg.Engine {
	case EngineReleaseGroup, "":
		return &cover.ArchiveEngine{
			Search:        &cfg.MusicBrainzClient,
			Front:         &cfg.CoverArtArchiveClient,
			Strategy:      cfg.Strategy,
			Size:          cfg.Size,
			MinSimilarity: cfg.MinSimilarity,
		}, nil
	case EngineRelease:
		return &cover.ReleaseEngine{
			Search:   &cfg.MusicBrainzClient,
			Front:    cover.NewCAAClient(coverfetch.UserAgent, cfg.CoverArtArchiveClient.BaseURL),
			MinScore: cfg.MinScore,
		}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownEngine, cfg.Engine)
}

// Fetcher builds a fetcher on the real filesystem, with the tree granted in the saved prefs.
func (cfg *Config) Fetcher(n *notifications.Notifications, r *researchlink.Builder) (*coverfetch.Fetcher, error) {
	engine, err := cfg.CoverEngine()
	if err != nil {
		return nil, err
	}

	fsys := afero.NewOsFs()
	prefs, err := storage.LoadPrefs(fsys, cfg.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}

	return &coverfetch.Fetcher{
		Engine:        engine,
		Fs:            fsys,
		Tree:          prefs.Tree(fsys),
		CoverName:     cfg.CoverName,
		CoverUpgrade:  cfg.CoverUpgrade,
		JPEGQuality:   cfg.JPEGQuality,
		MaxWidth:      cfg.MaxWidth,
		TagEditor:     cfg.TagEditor,
		CacheDir:      cfg.CacheDir,
		Notifications: n,
		ResearchLinks: r,
	}, nil
}

var _ flag.Value = (*strategyParser)(nil)
var _ flag.Value = (*tagEditorParser)(nil)
var _ flag.Value = (*researchLinkParser)(nil)
var _ flag.Value = (*notificationsParser)(nil)

type strategyParser struct{ *cover.Strategy }

func (s *strategyParser) Set(value string) error {
	st, err := cover.ParseStrategy(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	*s.Strategy = st
	return nil
}
func (s strategyParser) String() string {
	if s.Strategy == nil {
		return ""
	}
	return s.Strategy.String()
}

type tagEditorParser struct {
	editor *tageditor.Editor
}

func (t *tagEditorParser) Set(value string) error {
	name, rest, _ := strings.Cut(strings.TrimLeft(value, " "), " ")
	ed, err := tageditor.New(name, rest)
	if err != nil {
		return fmt.Errorf("tag editor %q: %w", name, err)
	}
	*t.editor = ed
	return nil
}
func (t tagEditorParser) String() string {
	if t.editor == nil || *t.editor == nil {
		return ""
	}
	return fmt.Sprint(*t.editor)
}

type researchLinkParser struct{ *researchlink.Builder }

func (r *researchLinkParser) Set(value string) error {
	name, value, _ := strings.Cut(value, " ")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	return r.AddSource(name, value)
}
func (r researchLinkParser) String() string {
	if r.Builder == nil {
		return ""
	}
	return strings.Join(r.Builder.Names(), ", ")
}

type notificationsParser struct{ *notifications.Notifications }

func (n *notificationsParser) Set(value string) error {
	events, uri, ok := strings.Cut(value, " ")
	if !ok {
		return fmt.Errorf("invalid notification uri format. expected eg \"ev1,ev2 uri\"")
	}
	return n.AddURIs(events, strings.TrimSpace(uri))
}
func (n notificationsParser) String() string {
	if n.Notifications == nil {
		return ""
	}
	var parts []string
	for _, m := range n.Notifications.Mappings() {
		url, _ := url.Parse(m.URI)
		parts = append(parts, fmt.Sprintf("%s: %s://%s/...", m.Event, url.Scheme, url.Host))
	}
	return strings.Join(parts, ", ")
}
