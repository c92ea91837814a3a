package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/roku-cli/internal/domain/signing"
	"github.com/oshokin/roku-cli/internal/logger"
)

const (
	pluginInstallPath = "/plugin_install"
	pluginInspectPath = "/plugin_inspect"
	pluginPackagePath = "/plugin_package"

	compilationFailedMarker = "Install Failure: Compilation Failed"
	installFailureMarker    = "Install Failure"
	rekeySuccessMarker      = "Success."
	signingFailureMarker    = "Failed:"
)

var (
	packageLinkPattern = regexp.MustCompile(`pkgs/+([^"'<>\s/]+\.pkg)`)
	failureTextPattern = regexp.MustCompile(`(?:Install Failure|Failed):[^<"\r\n]*`)
)

// DeleteInstalledChannel removes the sideloaded dev channel from the device.
func (c *Client) DeleteInstalledChannel(ctx context.Context, endpoint signing.DeviceEndpoint) error {
	ctx = logger.WithName(ctx, "installer")
	logger.InfoKV(ctx, "Removing installed dev channel", "host", endpoint.Host)

	_, err := c.post(ctx, endpoint, pluginInstallPath, []formField{
		{Name: "mysubmit", Value: "Delete"},
		{Name: "archive", Value: ""},
	})

	return err
}

// Deploy zips rootDir and sideloads it, replacing the installed dev channel.
// A compile error on the device fails the deploy.
func (c *Client) Deploy(ctx context.Context, endpoint signing.DeviceEndpoint, rootDir string) error {
	ctx = logger.WithName(ctx, "installer")

	archive, err := ArchiveProject(rootDir)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Sideloading project", "host", endpoint.Host, "root", rootDir, "bytes", len(archive))

	page, err := c.post(ctx, endpoint, pluginInstallPath, []formField{
		{Name: "mysubmit", Value: "Replace"},
		{Name: "archive", FileName: "roku-cli-deploy.zip", File: archive},
	})
	if err != nil {
		return err
	}

	switch {
	case strings.Contains(page, compilationFailedMarker):
		return ErrCompilationFailed
	case strings.Contains(page, installFailureMarker):
		return fmt.Errorf("%w: %s", ErrInstallFailed, failureText(page))
	}

	logger.Info(ctx, "Project installed")

	return nil
}

// Rekey keys the device to credential using the signed package at packagePath,
// then confirms the device reports the expected developer id.
func (c *Client) Rekey(ctx context.Context, endpoint signing.DeviceEndpoint, credential signing.Credential, packagePath string) error {
	ctx = logger.WithName(ctx, "installer")

	pkg, err := os.ReadFile(filepath.Clean(packagePath))
	if err != nil {
		return fmt.Errorf("read signed package: %w", err)
	}

	logger.InfoKV(ctx, "Rekeying device", "host", endpoint.Host, "dev_id", credential.DevID)

	page, err := c.post(ctx, endpoint, pluginInspectPath, []formField{
		{Name: "mysubmit", Value: "Rekey"},
		{Name: "passwd", Value: credential.Password},
		{Name: "archive", FileName: filepath.Base(packagePath), File: pkg},
	})
	if err != nil {
		return err
	}

	if !strings.Contains(page, rekeySuccessMarker) {
		return ErrRekeyFailed
	}

	return c.ensureKeyedTo(ctx, endpoint, credential.DevID)
}

// BuildAndSign sideloads rootDir, packages it on the device under credential and
// downloads the signed package to <stagingDir>/<appName>.pkg.
// The device must already be keyed to credential.
func (c *Client) BuildAndSign(
	ctx context.Context,
	endpoint signing.DeviceEndpoint,
	credential signing.Credential,
	rootDir, stagingDir, appName string,
) (string, error) {
	if err := c.Deploy(ctx, endpoint, rootDir); err != nil {
		return "", err
	}

	ctx = logger.WithName(ctx, "installer")

	if err := c.ensureKeyedTo(ctx, endpoint, credential.DevID); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Packaging installed channel", "app_name", appName)

	page, err := c.post(ctx, endpoint, pluginPackagePath, []formField{
		{Name: "mysubmit", Value: "Package"},
		{Name: "app_name", Value: appName},
		{Name: "passwd", Value: credential.Password},
		{Name: "pkg_time", Value: strconv.FormatInt(time.Now().UnixMilli(), 10)},
	})
	if err != nil {
		return "", err
	}

	if strings.Contains(page, signingFailureMarker) {
		return "", fmt.Errorf("%w: %s", ErrSigningFailed, failureText(page))
	}

	matches := packageLinkPattern.FindStringSubmatch(page)
	if matches == nil {
		return "", fmt.Errorf("%w: no package link in device response", ErrSigningFailed)
	}

	if err = os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	target := signing.PackageArtifact{Directory: stagingDir, Name: appName}.Path()

	file, err := os.Create(filepath.Clean(target))
	if err != nil {
		return "", fmt.Errorf("create package file: %w", err)
	}

	if err = c.get(ctx, endpoint, "/pkgs/"+matches[1], file); err != nil {
		_ = file.Close()

		return "", err
	}

	if err = file.Close(); err != nil {
		return "", fmt.Errorf("close package file: %w", err)
	}

	logger.InfoKV(ctx, "Signed package downloaded", "path", target)

	return target, nil
}

// ensureKeyedTo fails with ErrDevIDMismatch unless the device reports devID.
func (c *Client) ensureKeyedTo(ctx context.Context, endpoint signing.DeviceEndpoint, devID string) error {
	keyed, err := c.DevID(ctx, endpoint)
	if err != nil {
		return err
	}

	if keyed != devID {
		return fmt.Errorf("%w: device reports %q, expected %q", ErrDevIDMismatch, keyed, devID)
	}

	logger.DebugKV(ctx, "Device developer id confirmed", "dev_id", devID)

	return nil
}

// failureText extracts the device's one-line failure description from an installer page.
func failureText(page string) string {
	if match := failureTextPattern.FindString(page); match != "" {
		return strings.TrimSpace(match)
	}

	return "device reported a failure"
}
