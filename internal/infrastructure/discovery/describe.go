package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

const describeServicesPath = "/services/Empyrean"

// DescribeClient asks the local cloud controller which services it knows
// about via the DescribeServices action.
type DescribeClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDescribeClient builds a client against baseURL (e.g.
// http://localhost:8773). A nil httpClient gets a default with a timeout.
func NewDescribeClient(baseURL string, httpClient *http.Client) *DescribeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: domain.DefaultDiscoveryTimeout}
	}
	return &DescribeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type describeServicesResponse struct {
	Statuses []struct {
		ServiceID struct {
			Type string `xml:"type"`
			URI  string `xml:"uri"`
		} `xml:"serviceId"`
		LocalState string `xml:"localState"`
	} `xml:"serviceStatuses>item"`
}

// Services implements ports.Discovery.
func (c *DescribeClient) Services(ctx context.Context) ([]domain.ServiceRecord, error) {
	query := url.Values{}
	query.Set("Action", "DescribeServices")
	endpoint := c.baseURL + describeServicesPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("describe services: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("describe services: %s", resp.Status)
	}

	var parsed describeServicesResponse
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("describe services: decode response: %w", err)
	}

	records := make([]domain.ServiceRecord, 0, len(parsed.Statuses))
	for _, st := range parsed.Statuses {
		records = append(records, domain.ServiceRecord{
			Type:       strings.TrimSpace(st.ServiceID.Type),
			URI:        strings.TrimSpace(st.ServiceID.URI),
			LocalState: strings.TrimSpace(st.LocalState),
		})
	}
	return records, nil
}

var _ ports.Discovery = (*DescribeClient)(nil)
