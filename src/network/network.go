package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"live-dashboard/src/helpers"
	"live-dashboard/src/logger"
	"live-dashboard/src/models"
	"live-dashboard/src/utils"
)

// NetworkManager performs single-shot GET requests against the backend.
// Failures are returned to the caller, there is no retry loop.
type NetworkManager struct {
	Config *models.MSourceConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg *models.MSourceConfig, log *logger.Logger) *NetworkManager {
	nm := &NetworkManager{
		Config: cfg,
		Logger: log,
	}
	nm.Client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.Config.Proxy != "" {
		proxyURL, err := url.Parse(nm.Config.Proxy)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			nm.Logger.Warning("Ignoring invalid proxy '%s': %v", nm.Config.Proxy, err)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   utils.Seconds(nm.Config.RequestTimeout, utils.DefaultRequestTimeoutSeconds*time.Second),
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request and returns the body of a 200 response.
func (nm *NetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, helpers.NewFetchError(urlStr, err)
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalUrl, nil)
	if err != nil {
		return nil, helpers.NewFetchError(finalUrl, err)
	}
	req.Header.Set("Accept", "application/json")
	if nm.Config.UserAgent != "" {
		req.Header.Set("User-Agent", nm.Config.UserAgent)
	}

	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, helpers.NewFetchError(finalUrl, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, helpers.NewFetchError(finalUrl, fmt.Errorf("bad status: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, helpers.NewFetchError(finalUrl, err)
	}

	nm.Logger.Debug("GET %s -> %d bytes", finalUrl, len(body))
	return body, nil
}
