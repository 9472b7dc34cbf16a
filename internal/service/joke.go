package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Joke fetches one single-line joke. A response without joke text yields ""
// and no error.
func (c *Client) Joke(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("type", "single")

	body, status, err := c.get(ctx, "joke", c.jokeBase, "/joke/Any", q)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", &Error{Service: "joke", Status: status, Message: fmt.Sprintf("unexpected response (status %d)", status)}
	}

	return strings.TrimSpace(gjson.GetBytes(body, "joke").String()), nil
}
