package artifact

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venture-galaxy/matchmaker/internal/resilience"
)

// FTPOptions configures the FTP uploader.
type FTPOptions struct {
	// URL is ftp://host[:port]/dir. Credentials in the URL override User
	// and Password.
	URL      string
	User     string
	Password string
	// PublicBaseURL is prefixed to the file name to form the returned URL.
	// When empty the credential-free FTP URL is returned.
	PublicBaseURL string
	Timeout       time.Duration
	Retry         resilience.RetryConfig
	Progress      chan<- Progress
}

// FTPUploader stores files on an FTP server.
type FTPUploader struct {
	opts FTPOptions
	host string
	dir  string
}

// NewFTP creates an FTPUploader.
func NewFTP(opts FTPOptions) (*FTPUploader, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	host, dir, user, pass, err := parseFTPURL(opts.URL)
	if err != nil {
		return nil, err
	}
	if user != "" {
		opts.User, opts.Password = user, pass
	}
	if opts.User == "" {
		opts.User, opts.Password = "anonymous", "anonymous@"
	}
	return &FTPUploader{opts: opts, host: host, dir: dir}, nil
}

// parseFTPURL extracts host (with port), directory and credentials.
func parseFTPURL(rawURL string) (host, dir, user, pass string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "artifact: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", "", "", eris.Errorf("artifact: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", "", "", eris.New("artifact: empty host in ftp url")
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	dir = u.Path
	if dir == "" {
		dir = "/"
	}
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	return host, dir, user, pass, nil
}

// Backend implements Uploader.
func (u *FTPUploader) Backend() string { return "ftp" }

// Upload implements Uploader. Transient failures such as refused
// connections or 4xx replies are retried.
func (u *FTPUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	remote := path.Join(u.dir, path.Base(name))

	_, err := resilience.DoVal(ctx, u.opts.Retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.store(ctx, remote, data)
	})
	if err != nil {
		return "", eris.Wrapf(err, "artifact: upload %s", remote)
	}

	zap.L().Info("artifact: uploaded",
		zap.String("host", u.host),
		zap.String("path", remote),
		zap.Int("bytes", len(data)),
	)
	return u.publicURL(remote), nil
}

func (u *FTPUploader) store(ctx context.Context, remote string, data []byte) error {
	zap.L().Debug("ftp: connecting", zap.String("host", u.host), zap.String("path", remote))

	conn, err := ftp.Dial(u.host, ftp.DialWithTimeout(u.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return resilience.Transient("ftp dial", err)
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(u.opts.User, u.opts.Password); err != nil {
		return classify("ftp login", err)
	}
	if err := conn.Stor(remote, NewProgressReader(data, u.opts.Progress)); err != nil {
		return classify("ftp store", err)
	}
	return nil
}

// classify marks 4xx replies and network failures as transient.
func classify(op string, err error) error {
	var te *textproto.Error
	if errors.As(err, &te) && te.Code >= 400 && te.Code < 500 {
		return resilience.Transient(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Transient(op, err)
	}
	return eris.Wrap(err, op)
}

func (u *FTPUploader) publicURL(remote string) string {
	if u.opts.PublicBaseURL != "" {
		return strings.TrimRight(u.opts.PublicBaseURL, "/") + "/" + path.Base(remote)
	}
	return (&url.URL{Scheme: "ftp", Host: u.host, Path: remote}).String()
}
