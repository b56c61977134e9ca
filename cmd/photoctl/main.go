// Command photoctl crops a local photo the way the capture screen does and
// uploads it to the photo service.
//
//	photoctl crop   -canvas 400x300 -rect 50,40,200,200 -out crop.jpg photo.jpg
//	photoctl upload -server http://localhost:8081 -photo-id 101 -student-id <id> photo.jpg
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"idcards/internal/crop"
	"idcards/internal/logging"
	"idcards/internal/uploader"
)

func main() {
	log := logging.Must(os.Getenv("APP_ENV"))
	defer func() { _ = log.Sync() }()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "crop":
		err = runCrop(os.Args[2:])
	case "upload":
		err = runUpload(os.Args[2:], log)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "photoctl:", describe(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: photoctl crop|upload [flags] <image>")
}

// selection holds the crop flags shared by both subcommands.
type selection struct {
	canvas string
	rect   string
	direct bool
}

func (s *selection) register(fs *flag.FlagSet) {
	fs.StringVar(&s.canvas, "canvas", "", "display canvas WxH the rect is expressed in (default: image size)")
	fs.StringVar(&s.rect, "rect", "", "crop rect x,y,w,h in canvas pixels (default: centred square)")
	fs.BoolVar(&s.direct, "direct", false, "skip cropping and only shrink to the direct upload size")
}

// render decodes path and produces the JPEG bytes to upload.
func (s *selection) render(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := crop.Decode(f)
	if err != nil {
		return nil, err
	}
	if s.direct {
		return crop.Shrink(src)
	}

	canvas, err := parseCanvas(s.canvas, src.Bounds())
	if err != nil {
		return nil, err
	}
	sess := crop.NewSession(crop.StaticCapabilities(false), canvas)
	defer sess.Close()
	sess.Load(src)

	if s.rect != "" {
		r, err := parseRect(s.rect)
		if err != nil {
			return nil, err
		}
		sess.Select(r)
	}
	return sess.Capture(crop.SaveMaxEdge)
}

func runCrop(args []string) error {
	fs := flag.NewFlagSet("crop", flag.ContinueOnError)
	var sel selection
	sel.register(fs)
	out := fs.String("out", "", "output file (default: <name>_crop.jpg)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one image")
	}
	data, err := sel.render(fs.Arg(0))
	if err != nil {
		return err
	}
	dst := *out
	if dst == "" {
		base := strings.TrimSuffix(fs.Arg(0), filepath.Ext(fs.Arg(0)))
		dst = base + "_crop.jpg"
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", dst, len(data))
	return nil
}

func runUpload(args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	var sel selection
	sel.register(fs)
	server := fs.String("server", envOr("IDCARDS_SERVER", "http://localhost:8081"), "photo service base URL")
	token := fs.String("token", os.Getenv("IDCARDS_TOKEN"), "bearer access token")
	photoID := fs.String("photo-id", "", "roster photo id")
	studentID := fs.String("student-id", "", "student record id")
	timeout := fs.Duration("timeout", uploader.DefaultTimeout, "give up after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one image")
	}
	if *photoID == "" && *studentID == "" {
		return errors.New("-photo-id or -student-id is required")
	}

	data, err := sel.render(fs.Arg(0))
	if err != nil {
		return err
	}

	client := uploader.New(*server, *token)
	client.Timeout = *timeout
	res, err := client.Dispatch(context.Background(), uploader.Request{
		Image:     data,
		PhotoID:   *photoID,
		StudentID: *studentID,
		Filename:  filepath.Base(fs.Arg(0)),
	}, func(pct int) {
		fmt.Fprintf(os.Stderr, "\ruploading %3d%%", pct)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	log.Info("photo uploaded", zap.String("photo_id", *photoID), zap.String("student_id", *studentID), zap.String("url", res.PhotoURL))
	fmt.Println(res.PhotoURL)
	return nil
}

func describe(err error) string {
	var se *uploader.ServerError
	switch {
	case errors.Is(err, crop.ErrDecodeFailed):
		return "could not read the image file"
	case errors.Is(err, crop.ErrEncodingFailed):
		return "could not encode the cropped image"
	case errors.Is(err, uploader.ErrUploadTimeout):
		return "upload took too long, try again"
	case errors.Is(err, uploader.ErrNetwork):
		return "could not reach the server, check your connection"
	case errors.As(err, &se):
		if se.Code != "" {
			return fmt.Sprintf("%s (%s)", se.Message, se.Code)
		}
		return se.Error()
	default:
		return err.Error()
	}
}

func parseCanvas(s string, bounds image.Rectangle) (crop.Canvas, error) {
	if s == "" {
		return crop.Canvas{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}, nil
	}
	w, h, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		return crop.Canvas{}, fmt.Errorf("canvas %q: want WxH", s)
	}
	fw, err1 := strconv.ParseFloat(w, 64)
	fh, err2 := strconv.ParseFloat(h, 64)
	if err1 != nil || err2 != nil || fw <= 0 || fh <= 0 {
		return crop.Canvas{}, fmt.Errorf("canvas %q: want positive WxH", s)
	}
	return crop.Canvas{Width: fw, Height: fh}, nil
}

func parseRect(s string) (crop.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return crop.Rect{}, fmt.Errorf("rect %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return crop.Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = f
	}
	return crop.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
