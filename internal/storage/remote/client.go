// Package remote reads profiles from the customer CRM REST API.
package remote

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	userAgent = "spigell/matchmaker"
	// Max value for listing per page.
	perPage = 100

	customersPath = "/customers"
	healthPath    = "/health"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
	PerPage    int
}

func New(logger *zap.Logger, baseURL, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:   strings.TrimSpace(token),
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
		PerPage:   perPage,
	}
}
