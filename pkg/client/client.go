package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/astramind/astramind/rag"
	"github.com/astramind/astramind/rag/types"
)

// Client talks to the HTTP API.
type Client struct {
	BaseURL string
	http    *http.Client
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, http: http.DefaultClient}
}

func (c *Client) checkStatus(resp *http.Response, want int, action string) error {
	if resp.StatusCode == want {
		return nil
	}

	apiErr := struct {
		Error string `json:"error"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("failed to %s: %s", action, apiErr.Error)
	}
	return fmt.Errorf("failed to %s: status %d", action, resp.StatusCode)
}

// CreateCollection creates a new collection.
func (c *Client) CreateCollection(name string) error {
	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return err
	}

	resp, err := c.http.Post(c.BaseURL+"/api/collections", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(resp, http.StatusCreated, "create collection")
}

// ListCollections lists all collections.
func (c *Client) ListCollections() ([]string, error) {
	resp, err := c.http.Get(c.BaseURL + "/api/collections")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, http.StatusOK, "list collections"); err != nil {
		return nil, err
	}

	var collections []string
	if err := json.NewDecoder(resp.Body).Decode(&collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// Search runs a hybrid query against a collection.
func (c *Client) Search(collection, query string, alpha float64, maxResults int) ([]types.Result, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query":       query,
		"alpha":       alpha,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(fmt.Sprintf("%s/api/collections/%s/search", c.BaseURL, collection), "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, http.StatusOK, "search collection"); err != nil {
		return nil, err
	}

	var results []types.Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	return results, nil
}

// Store uploads a file into a collection.
func (c *Client) Store(collection, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := c.http.Post(fmt.Sprintf("%s/api/collections/%s/upload", c.BaseURL, collection), writer.FormDataContentType(), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(resp, http.StatusOK, "upload file")
}

// ListEntries lists the ingested entries of a collection.
func (c *Client) ListEntries(collection string) ([]string, error) {
	resp, err := c.http.Get(fmt.Sprintf("%s/api/collections/%s/entries", c.BaseURL, collection))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, http.StatusOK, "list entries"); err != nil {
		return nil, err
	}

	var entries []string
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Reset clears a collection.
func (c *Client) Reset(collection string) error {
	resp, err := c.http.Post(fmt.Sprintf("%s/api/collections/%s/reset", c.BaseURL, collection), "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(resp, http.StatusOK, "reset collection")
}

// Ask answers a question grounded in a collection.
func (c *Client) Ask(collection, question string) (*rag.Answer, error) {
	q := url.Values{}
	q.Set("question", question)

	resp, err := c.http.Get(fmt.Sprintf("%s/api/collections/%s/ask?%s", c.BaseURL, collection, q.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, http.StatusOK, "ask question"); err != nil {
		return nil, err
	}

	answer := &rag.Answer{}
	if err := json.NewDecoder(resp.Body).Decode(answer); err != nil {
		return nil, err
	}
	return answer, nil
}
