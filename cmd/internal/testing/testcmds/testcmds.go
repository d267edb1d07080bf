package testcmds

import (
	"embed"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"go.senan.xyz/coverfetch/clientutil"
	"go.senan.xyz/coverfetch/coverimage"
	"go.senan.xyz/coverfetch/tageditor/flac"
)

//go:embed testdata/responses
var responses embed.FS

// RegisterTransport serves MusicBrainz and Cover Art Archive responses from testdata. A
// search is answered by the JSON file named after its query, so
//
//	release-group?query=releasegroup:(minutes to midnight) AND artistname:(linkin park)
//
// reads release-group/releasegroup-minutes-to-midnight-and-artistname-linkin-park.json
func RegisterTransport() {
	files := http.NewFileTransportFS(responses)

	// not an *http.Transport, so it isn't replaced by a clone with timeouts
	transport := clientutil.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Scheme != "file" {
			return nil, fmt.Errorf("no network in tests: %s", r.URL)
		}
		if q := r.URL.Query().Get("query"); q != "" {
			r = r.Clone(r.Context())
			r.URL.Path = path.Join(r.URL.Path, querySlug(q)+".json")
			r.URL.RawQuery = ""
		}
		return files.RoundTrip(r)
	})

	os.Setenv("COVERFETCH_MB_BASE_URL", "file:///testdata/responses/musicbrainz/ws/2")
	os.Setenv("COVERFETCH_MB_RATE_LIMIT", "0")
	os.Setenv("COVERFETCH_CAA_BASE_URL", "file:///testdata/responses/coverartarchive")
	os.Setenv("COVERFETCH_CAA_RATE_LIMIT", "0")

	http.DefaultTransport = transport
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

func querySlug(q string) string {
	return strings.Trim(nonWord.ReplaceAllString(strings.ToLower(q), "-"), "-")
}

func Touch() {
	flag.Parse()

	for _, p := range flag.Args() {
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			log.Fatalf("mkdirall: %v", err)
		}
		if _, err := os.Create(p); err != nil {
			log.Fatalf("err creating: %v", err)
		}
	}
}

func MIME() {
	flag.Parse()

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("error reading: %v", err)
	}

	mime := http.DetectContentType(data)
	fmt.Println(mime)
}

// ImageInfo prints the format and dimensions of an image file.
func ImageInfo() {
	flag.Parse()

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("error reading: %v", err)
	}
	info, err := coverimage.Describe(data)
	if err != nil {
		log.Fatalf("describe: %v", err)
	}
	fmt.Println(info)
}

// EmptyFLAC creates FLAC files with a stream info block and nothing else.
func EmptyFLAC() {
	flag.Parse()

	for _, p := range flag.Args() {
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			log.Fatalf("mkdirall: %v", err)
		}
		if err := os.WriteFile(p, emptyFLAC(), 0o644); err != nil {
			log.Fatalf("write flac: %v", err)
		}
	}
}

// FLACCover prints the MIME type of the front cover embedded in a FLAC file.
func FLACCover() {
	flag.Parse()

	_, mime, err := flac.FrontCover(flag.Arg(0))
	if err != nil {
		log.Fatalf("read front cover: %v", err)
	}
	if mime == "" {
		log.Fatalf("no front cover")
	}
	fmt.Println(mime)
}

func emptyFLAC() []byte {
	data := []byte("fLaC")
	data = append(data, 0x80, 0, 0, 34) // last block, stream info, 34 bytes
	data = append(data, make([]byte, 34)...)
	return data
}
