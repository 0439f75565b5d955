// Package board implements the source client for the community forum API.
// The listing endpoint requires a bearer token obtained through the client
// credentials grant; the token is cached in the client and refreshed through
// a singleflight group so concurrent crawls share one in-flight refresh.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"content_harvester/internal/domain"
)

const SourceCode = "board"

// tokenSlack is subtracted from the reported token lifetime so a token is
// never used right at its expiry edge.
const tokenSlack = 30 * time.Second

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type Source struct {
	httpClient   *http.Client
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	logger       *slog.Logger

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
	refresh     singleflight.Group
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logger.With("source", SourceCode),
	}
}

func (s *Source) Code() string { return SourceCode }

func (s *Source) Kind() domain.ContentKind { return domain.KindPost }

// FetchPage fetches one page of posts for the configured community and
// normalizes them into RawItems.
func (s *Source) FetchPage(ctx context.Context, query domain.SourceConfig, page, pageSize int) ([]domain.RawItem, error) {
	token, err := s.bearerToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	u := fmt.Sprintf("%s/c/%s/new?limit=%d&page=%d", s.baseURL, url.PathEscape(query.Community), pageSize, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "ContentHarvester/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransientError{Op: "board fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ClassifyStatus("board fetch", resp.StatusCode, fmt.Errorf("unexpected status"))
	}

	var listing listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, &domain.PermanentError{Op: "board fetch", Err: fmt.Errorf("decode response: %w", err)}
	}

	return s.transform(listing), nil
}

func (s *Source) transform(listing listingResponse) []domain.RawItem {
	items := make([]domain.RawItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data

		item := domain.RawItem{
			ExternalID:   p.ID,
			Title:        p.Title,
			Body:         p.SelfText,
			Author:       p.Author,
			Origin:       p.Community,
			Score:        p.Score,
			CommentCount: p.NumComments,
			Removed:      p.RemovedByCategory != "",
			Locked:       p.Locked,
			Pinned:       p.Stickied,
		}

		if p.CreatedUTC > 0 {
			t := time.Unix(int64(p.CreatedUTC), 0).UTC()
			item.PublishedAt = &t
		} else {
			s.logger.Warn("missing created timestamp, keeping item",
				"external_id", p.ID,
			)
		}

		items = append(items, item)
	}
	return items
}

func (s *Source) bearerToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		token := s.token
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.refresh.Do("token", func() (any, error) {
		return s.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Source) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &domain.TransientError{Op: "board token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.ClassifyStatus("board token", resp.StatusCode, fmt.Errorf("token request rejected"))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &domain.PermanentError{Op: "board token", Err: fmt.Errorf("decode token: %w", err)}
	}
	if tok.AccessToken == "" {
		return "", &domain.PermanentError{Op: "board token", Err: fmt.Errorf("empty access token")}
	}

	s.mu.Lock()
	s.token = tok.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSlack)
	s.mu.Unlock()

	s.logger.Debug("refreshed bearer token", "expires_in", tok.ExpiresIn)

	return tok.AccessToken, nil
}
