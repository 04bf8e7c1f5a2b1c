// Package fetch downloads remote images for import and the image proxy.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultMaxBytes = 10 << 20
	DefaultTimeout  = 20 * time.Second
)

var (
	ErrUnsafeURL = errors.New("url not allowed")
	ErrTooLarge  = errors.New("image too large")
	ErrNotImage  = errors.New("not an image")
	ErrUpstream  = errors.New("upstream error")
)

type entry struct {
	data        []byte
	contentType string
}

// Fetcher downloads images over http(s), refusing private and loopback targets.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64
	// AllowPrivate disables the network checks. Tests only.
	AllowPrivate bool

	cache *cache.Cache
}

// New returns a Fetcher that caches successful downloads for ttl. ttl <= 0 disables caching.
func New(maxBytes int64, ttl time.Duration) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	f := &Fetcher{MaxBytes: maxBytes}
	if ttl > 0 {
		f.cache = cache.New(ttl, 2*ttl)
	}
	f.Client = &http.Client{
		Timeout:   DefaultTimeout,
		Transport: f.transport(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return f.checkURL(req.URL)
		},
	}
	return f
}

// Fetch downloads rawURL and returns its bytes and sniffed image content type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if err := f.checkURL(u); err != nil {
		return nil, "", err
	}
	key := u.String()
	if f.cache != nil {
		if v, ok := f.cache.Get(key); ok {
			e := v.(entry)
			return e.data, e.contentType, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "image/*")
	resp, err := f.Client.Do(req)
	if err != nil {
		var unsafe *unsafeAddrError
		if errors.As(err, &unsafe) {
			return nil, "", fmt.Errorf("%w: %v", ErrUnsafeURL, unsafe)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if resp.ContentLength > f.MaxBytes {
		return nil, "", ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if int64(len(data)) > f.MaxBytes {
		return nil, "", ErrTooLarge
	}
	contentType := imageType(resp.Header.Get("Content-Type"), data)
	if contentType == "" {
		return nil, "", ErrNotImage
	}

	if f.cache != nil {
		f.cache.SetDefault(key, entry{data: data, contentType: contentType})
	}
	return data, contentType, nil
}

// imageType prefers the sniffed type and falls back to the declared one for formats
// the sniffer does not know (svg, avif). Non-image payloads yield "".
func imageType(declared string, data []byte) string {
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	switch sniffed {
	case "application/octet-stream", "text/xml", "text/plain":
	default:
		return ""
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	return ""
}

func (f *Fetcher) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrUnsafeURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrUnsafeURL)
	}
	if f.AllowPrivate {
		return nil
	}
	if ip := net.ParseIP(u.Hostname()); ip != nil && !publicIP(ip) {
		return fmt.Errorf("%w: %s", ErrUnsafeURL, ip)
	}
	return nil
}

type unsafeAddrError struct {
	addr string
}

func (e *unsafeAddrError) Error() string {
	return "restricted address " + e.addr
}

// transport re-checks the resolved address at dial time so DNS answers cannot point the
// request at an internal host.
func (f *Fetcher) transport() *http.Transport {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			if f.AllowPrivate {
				return nil
			}
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !publicIP(ip) {
				return &unsafeAddrError{addr: address}
			}
			return nil
		},
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = dialer.DialContext
	t.Proxy = nil
	return t
}

func publicIP(ip net.IP) bool {
	return !(ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast())
}
