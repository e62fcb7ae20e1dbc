package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
)

const downloadTimeout = 2 * time.Minute

// Download fetches a feed file over HTTP(S) or FTP into a temporary file and
// returns its path. XLSX parsing needs a seekable file, so everything lands
// on disk. The caller removes the file when done.
func Download(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "feed: parse url %s", rawURL)
	}

	var body io.ReadCloser
	switch u.Scheme {
	case "http", "https":
		body, err = downloadHTTP(ctx, rawURL)
	case "ftp":
		body, err = downloadFTP(ctx, u)
	default:
		return "", eris.Errorf("feed: unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	ext := path.Ext(u.Path)
	tmp, err := os.CreateTemp("", "feed-*"+ext)
	if err != nil {
		return "", eris.Wrap(err, "feed: create temp file")
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", eris.Wrap(err, "feed: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrap(err, "feed: close temp file")
	}
	return tmp.Name(), nil
}

func downloadHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "feed: build request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "feed: http get")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("feed: http get %s: status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

// ftpReader keeps the control connection open until the transfer is read.
type ftpReader struct {
	io.ReadCloser
	conn *ftp.ServerConn
}

func (r *ftpReader) Close() error {
	err := r.ReadCloser.Close()
	if qerr := r.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}

func downloadFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	host := u.Host
	if u.Port() == "" {
		host = fmt.Sprintf("%s:21", u.Hostname())
	}

	conn, err := ftp.Dial(host,
		ftp.DialWithTimeout(30*time.Second),
		ftp.DialWithContext(ctx),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: ftp dial %s", host)
	}

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "feed: ftp login")
	}

	resp, err := conn.Retr(strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "feed: ftp retr %s", u.Path)
	}
	return &ftpReader{ReadCloser: resp, conn: conn}, nil
}
