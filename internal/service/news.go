package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"murmur/internal/message"
)

const newsPageSize = 5

type newsResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
	} `json:"articles"`
}

// News returns up to five articles. A keyword switches to the search
// endpoint and the country is ignored. An empty slice is not an error.
func (c *Client) News(ctx context.Context, country, keyword string) ([]message.Article, error) {
	q := url.Values{}
	q.Set("pageSize", fmt.Sprint(newsPageSize))
	q.Set("language", "en")
	q.Set("apiKey", c.newsKey)

	path := "/v2/top-headlines"
	if keyword != "" {
		path = "/v2/everything"
		q.Set("q", keyword)
		q.Set("sortBy", "publishedAt")
	} else if country != "" {
		q.Set("country", country)
	}

	body, status, err := c.get(ctx, "news", c.newsBase, path, q)
	if err != nil {
		return nil, err
	}

	var r newsResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &Error{Service: "news", Status: status, Message: fmt.Sprintf("unexpected response (status %d)", status)}
	}
	if r.Status == "error" {
		msg := r.Message
		if msg == "" {
			msg = r.Code
		}
		return nil, &Error{Service: "news", Status: status, Message: msg}
	}

	out := make([]message.Article, 0, len(r.Articles))
	for _, a := range r.Articles {
		if len(out) == newsPageSize {
			break
		}
		out = append(out, message.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
		})
	}

	return out, nil
}
