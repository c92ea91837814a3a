package installer

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/icholy/digest"

	"github.com/oshokin/roku-cli/internal/domain/signing"
)

const (
	// DefaultTimeout bounds a single installer request.
	DefaultTimeout = 2 * time.Minute

	// DefaultECPPort is the External Control Protocol port.
	DefaultECPPort = "8060"

	// maxResponseSize caps installer HTML pages read into memory.
	maxResponseSize = 4 << 20
)

var (
	// ErrUnauthorized is returned when the device rejects the installer credentials.
	ErrUnauthorized = errors.New("unauthorized: check the device username and password")
	// ErrUnexpectedStatus is returned for any non-200 installer response.
	ErrUnexpectedStatus = errors.New("unexpected http status")
	// ErrCompilationFailed is returned when the device fails to compile the sideloaded project.
	ErrCompilationFailed = errors.New("install failure: compilation failed")
	// ErrInstallFailed is returned for any other install failure reported by the device.
	ErrInstallFailed = errors.New("install failure")
	// ErrRekeyFailed is returned when the device does not confirm a rekey.
	ErrRekeyFailed = errors.New("unexpected response when rekeying device")
	// ErrDevIDMismatch is returned when the device is keyed to another developer id.
	ErrDevIDMismatch = errors.New("device developer id does not match the signing credential")
	// ErrSigningFailed is returned when the device does not produce a package.
	ErrSigningFailed = errors.New("package signing failed")
)

// Client drives the developer installer of one or more devices.
type Client struct {
	// base is the round tripper wrapped with digest authentication per endpoint.
	base http.RoundTripper
	// timeout bounds each request.
	timeout time.Duration
	// installerPort overrides the default HTTP port of the installer.
	installerPort string
	// ecpPort is the External Control Protocol port.
	ecpPort string
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.base = rt
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithInstallerPort targets the installer on a non-default port.
func WithInstallerPort(port string) Option {
	return func(c *Client) {
		c.installerPort = port
	}
}

// WithECPPort targets the External Control Protocol on a non-default port.
func WithECPPort(port string) Option {
	return func(c *Client) {
		if port != "" {
			c.ecpPort = port
		}
	}
}

// New creates an installer client.
func New(opts ...Option) *Client {
	c := &Client{
		base:    http.DefaultTransport,
		timeout: DefaultTimeout,
		ecpPort: DefaultECPPort,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// deviceInfo is the subset of ECP device-info the client reads.
type deviceInfo struct {
	XMLName          xml.Name `xml:"device-info"`
	KeyedDeveloperID string   `xml:"keyed-developer-id"`
}

// DevID returns the developer id the device is currently keyed to.
func (c *Client) DevID(ctx context.Context, endpoint signing.DeviceEndpoint) (string, error) {
	target := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(endpoint.Host, c.ecpPort),
		Path:   "/query/device-info",
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return "", err
	}

	client := &http.Client{Transport: c.base, Timeout: c.timeout}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query device info: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("query device info: %s: %w", resp.Status, ErrUnexpectedStatus)
	}

	var info deviceInfo
	if err = xml.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&info); err != nil {
		return "", fmt.Errorf("decode device info: %w", err)
	}

	return info.KeyedDeveloperID, nil
}

// formField is one multipart field; a non-nil File makes it a file part.
type formField struct {
	Name     string
	Value    string
	FileName string
	File     []byte
}

// post submits a multipart form to the installer and returns the response page.
func (c *Client) post(ctx context.Context, endpoint signing.DeviceEndpoint, path string, fields []formField) (string, error) {
	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	for _, field := range fields {
		if field.File == nil {
			if err := writer.WriteField(field.Name, field.Value); err != nil {
				return "", err
			}

			continue
		}

		part, err := writer.CreateFormFile(field.Name, field.FileName)
		if err != nil {
			return "", err
		}

		if _, err = part.Write(field.File); err != nil {
			return "", err
		}
	}

	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.installerURL(endpoint, path), bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(endpoint, req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", path, err)
	}

	if err = checkStatus(path, resp); err != nil {
		return string(page), err
	}

	return string(page), nil
}

// get downloads path from the installer into w.
func (c *Client) get(ctx context.Context, endpoint signing.DeviceEndpoint, path string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.installerURL(endpoint, path), http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.do(endpoint, req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if err = checkStatus(path, resp); err != nil {
		return err
	}

	if _, err = io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", path, err)
	}

	return nil
}

// do sends req with digest authentication for endpoint.
func (c *Client) do(endpoint signing.DeviceEndpoint, req *http.Request) (*http.Response, error) {
	client := &http.Client{
		Transport: &digest.Transport{
			Username:  endpoint.Username,
			Password:  endpoint.Password,
			Transport: c.base,
		},
		Timeout: c.timeout,
	}

	return client.Do(req)
}

func (c *Client) installerURL(endpoint signing.DeviceEndpoint, path string) string {
	host := endpoint.Host
	if c.installerPort != "" {
		host = net.JoinHostPort(endpoint.Host, c.installerPort)
	}

	target := url.URL{Scheme: "http", Host: host, Path: path}

	return target.String()
}

func checkStatus(path string, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%s: %s: %w", path, resp.Status, ErrUnexpectedStatus)
	}
}
