package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"go.senan.xyz/table/table"

	"go.senan.xyz/coverfetch"
	"go.senan.xyz/coverfetch/cmd/internal/coverflag"
	"go.senan.xyz/coverfetch/cmd/internal/mainlib"
	"go.senan.xyz/coverfetch/cover"
	"go.senan.xyz/coverfetch/fileutil"
	"go.senan.xyz/coverfetch/musicbrainz"
	"go.senan.xyz/coverfetch/notifications"
	"go.senan.xyz/coverfetch/plugin"
	"go.senan.xyz/coverfetch/researchlink"
	"go.senan.xyz/coverfetch/storage"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] fetch [<fetch options>]\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] candidates [<fetch options>]\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] show [-write folder] <path>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] grant-tree <dir>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] plugin [-describe] [-write <mode>]\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Fetch options:\n")
		fmt.Fprintf(flag.Output(), "  -artist, -album, -track   search by name\n")
		fmt.Fprintf(flag.Output(), "  -query                    search with a raw MusicBrainz query\n")
		fmt.Fprintf(flag.Output(), "  -file                     read the search from a media file or album dir\n")
		fmt.Fprintf(flag.Output(), "  -random                   try candidates in random order\n")
		fmt.Fprintf(flag.Output(), "  -out                      save the cover to this path\n")
		fmt.Fprintf(flag.Output(), "  -write                    also write the cover next to -file (folder) or into it (tag)\n")
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	defer mainlib.Logging()()
	var (
		cfg    = coverflag.NewConfig()
		notifs = coverflag.Notifications()
		links  = coverflag.ResearchLinks()
	)
	coverflag.Parse()

	mainlib.WrapClient()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if flag.NArg() == 0 {
		flag.Usage()
		return
	}

	command, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch command {
	case "fetch":
		err = runFetch(ctx, cfg, notifs, links, args)
	case "candidates":
		err = runCandidates(ctx, cfg, args)
	case "show":
		err = runShow(ctx, cfg, args)
	case "grant-tree":
		err = runGrantTree(cfg, args)
	case "plugin":
		err = runPlugin(ctx, cfg, notifs, links, args)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		slog.Error(command, "err", err)
		return
	}
}

type queryFlags struct {
	artist, album, track string
	query                string
	file                 string
	random               bool
}

func (qf *queryFlags) register(flag *flag.FlagSet) {
	flag.StringVar(&qf.artist, "artist", "", "Artist name")
	flag.StringVar(&qf.album, "album", "", "Album title")
	flag.StringVar(&qf.track, "track", "", "Track title, searched as a single if there's no album")
	flag.StringVar(&qf.query, "query", "", "Raw MusicBrainz search query")
	flag.StringVar(&qf.file, "file", "", "Media file or album dir to read tags from")
	flag.BoolVar(&qf.random, "random", false, "Try candidates in random order")
}

func (qf *queryFlags) build() (cover.Query, error) {
	q := cover.Query{Artist: qf.artist, Album: qf.album, Track: qf.track, Raw: qf.query}
	if qf.file == "" || q.Raw != "" {
		return q, nil
	}
	tags, err := coverfetch.QueryFile(afero.NewOsFs(), qf.file)
	if err != nil {
		if !q.IsZero() {
			slog.Warn("reading tags", "file", qf.file, "err", err)
			return q, nil
		}
		return cover.Query{}, fmt.Errorf("read tags: %w", err)
	}
	return coverfetch.MergeQuery(q, tags), nil
}

func runFetch(ctx context.Context, cfg *coverflag.Config, n *notifications.Notifications, r *researchlink.Builder, args []string) error {
	var qf queryFlags
	subflag := flag.NewFlagSet("fetch", flag.ExitOnError)
	qf.register(subflag)
	out := subflag.String("out", "", "Save the cover to this path, or a name made from the artist and album if no other output is asked for")
	writeMode := subflag.String("write", string(coverfetch.WriteNone), `Where to write the cover for -file, "none", "folder", or "tag"`)
	upgrade := subflag.Bool("cover-upgrade", cfg.CoverUpgrade, "Write the folder cover even if one exists")
	subflag.Parse(args)

	mode, err := coverfetch.ParseWriteMode(*writeMode)
	if err != nil {
		return err
	}
	if mode != coverfetch.WriteNone && qf.file == "" {
		return fmt.Errorf("-write %s needs a -file", mode)
	}

	q, err := qf.build()
	if err != nil {
		return err
	}
	if qf.random {
		cfg.Strategy = cover.Random
	}
	cfg.CoverUpgrade = *upgrade

	f, err := cfg.Fetcher(n, r)
	if err != nil {
		return err
	}

	cov, info, err := f.Fetch(ctx, q)
	if err != nil {
		return err
	}
	slog.Info("found cover", "mbid", cov.MBID, "image", info)

	if *out == "" && mode == coverfetch.WriteNone {
		ext := "." + info.Format
		if info.Format == "jpeg" {
			ext = ".jpg"
		}
		*out = fileutil.CoverName(q.Artist, q.Album, ext)
	}
	if *out != "" {
		if err := os.WriteFile(*out, cov.Data, 0o644); err != nil {
			return fmt.Errorf("save cover: %w", err)
		}
		fmt.Println(*out)
	}

	if mode != coverfetch.WriteNone {
		path, err := f.Put(ctx, mode, qf.file, cov.Data)
		if errors.Is(err, coverfetch.ErrCoverExists) {
			slog.Info("folder already has a cover, use -cover-upgrade to replace it", "path", path)
			return nil
		}
		if errors.Is(err, storage.ErrTreeAccessNeeded) {
			return fmt.Errorf("%w, run grant-tree with the music dir", err)
		}
		if err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}

func runCandidates(ctx context.Context, cfg *coverflag.Config, args []string) error {
	var qf queryFlags
	subflag := flag.NewFlagSet("candidates", flag.ExitOnError)
	qf.register(subflag)
	subflag.Parse(args)

	q, err := qf.build()
	if err != nil {
		return err
	}
	if q.IsZero() {
		return coverfetch.ErrNothingToSearch
	}
	if qf.random {
		cfg.Strategy = cover.Random
	}

	engine, err := cfg.CoverEngine()
	if err != nil {
		return err
	}
	archive, ok := engine.(*cover.ArchiveEngine)
	if !ok {
		return fmt.Errorf("engine %q doesn't list candidates", cfg.Engine)
	}

	groups, err := archive.Candidates(ctx, q)
	if err != nil {
		return err
	}

	t := table.NewStringWriter()
	for _, rg := range groups {
		var year string
		if !rg.FirstReleaseDate.IsZero() {
			year = fmt.Sprint(rg.FirstReleaseDate.Year())
		}
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\thttps://musicbrainz.org/release-group/%s\n",
			rg.Score, orEmpty(musicbrainz.ArtistsCreditString(rg.Artists)), rg.Title, orEmpty(year), rg.ID)
	}
	fmt.Print(t.String())
	return nil
}

func runShow(ctx context.Context, cfg *coverflag.Config, args []string) error {
	subflag := flag.NewFlagSet("show", flag.ExitOnError)
	writeMode := subflag.String("write", string(coverfetch.WriteNone), `Also write the art to the folder of the path, "none" or "folder"`)
	subflag.Parse(args)

	path := subflag.Arg(0)
	if path == "" {
		return fmt.Errorf("need a path")
	}
	mode, err := coverfetch.ParseWriteMode(*writeMode)
	if err != nil {
		return err
	}
	if mode == coverfetch.WriteTag {
		return fmt.Errorf("can't write art back to its own tags")
	}

	f, err := cfg.Fetcher(nil, nil)
	if err != nil {
		return err
	}
	data, info, err := f.ReadArt(path)
	if err != nil {
		return err
	}
	fmt.Println(info)

	if mode == coverfetch.WriteFolder {
		written, err := f.WriteFolder(ctx, path, data)
		if errors.Is(err, coverfetch.ErrCoverExists) {
			slog.Info("folder already has a cover, use -cover-upgrade to replace it", "path", written)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(written)
	}
	return nil
}

func runGrantTree(cfg *coverflag.Config, args []string) error {
	subflag := flag.NewFlagSet("grant-tree", flag.ExitOnError)
	subflag.Parse(args)

	dir := subflag.Arg(0)
	if dir == "" {
		return fmt.Errorf("need a dir")
	}

	fsys := afero.NewOsFs()
	prefs, err := storage.LoadPrefs(fsys, cfg.PrefsPath)
	if err != nil {
		return err
	}
	if err := prefs.GrantTree(fsys, dir); err != nil {
		return err
	}
	if err := prefs.Save(fsys, cfg.PrefsPath); err != nil {
		return err
	}
	slog.Info("granted tree", "root", prefs.TreeRoot)
	return nil
}

func runPlugin(ctx context.Context, cfg *coverflag.Config, n *notifications.Notifications, r *researchlink.Builder, args []string) error {
	subflag := flag.NewFlagSet("plugin", flag.ExitOnError)
	describe := subflag.Bool("describe", false, "Print the plugin description and exit")
	writeMode := subflag.String("write", string(coverfetch.WriteNone), `Where to write fetched covers, "none", "folder", or "tag"`)
	subflag.Parse(args)

	if *describe {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plugin.Describe(coverfetch.Version))
	}

	mode, err := coverfetch.ParseWriteMode(*writeMode)
	if err != nil {
		return err
	}
	f, err := cfg.Fetcher(n, r)
	if err != nil {
		return err
	}

	h := &coverfetch.PluginHandler{Fetcher: f, Write: mode}
	return plugin.Serve(ctx, os.Stdin, os.Stdout, h)
}

func orEmpty(s string) string {
	if s == "" {
		return "[empty]"
	}
	return s
}
