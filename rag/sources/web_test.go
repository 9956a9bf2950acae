package sources_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/astramind/astramind/rag/sources"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GetWebPage", func() {
	It("converts HTML to plain text", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body><h1>Release Notes</h1><p>Version 2.0 adds search.</p></body></html>"))
		}))
		defer server.Close()

		text, err := GetWebPage(server.URL)
		Expect(err).ToNot(HaveOccurred())
		Expect(text).To(ContainSubstring("Release Notes"))
		Expect(text).To(ContainSubstring("Version 2.0 adds search."))
		Expect(text).ToNot(ContainSubstring("<p>"))
	})

	It("fails on non-200 responses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := GetWebPage(server.URL)
		Expect(err).To(HaveOccurred())
	})

	It("fails when the server is unreachable", func() {
		_, err := GetWebPage("http://127.0.0.1:1")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("SourceRouter", func() {
	It("fetches regular URLs as web pages", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><body>plain page</body></html>"))
		}))
		defer server.Close()

		content, err := SourceRouter(server.URL + "/page")
		Expect(err).ToNot(HaveOccurred())
		Expect(content).To(ContainSubstring("plain page"))
	})

	It("crawls sitemap URLs page by page", func() {
		mux := http.NewServeMux()
		var server *httptest.Server
		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>` + server.URL + `/one</loc></url>
  <url><loc>` + server.URL + `/two</loc></url>
</urlset>`))
		})
		mux.HandleFunc("/one", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><body>page one body</body></html>"))
		})
		mux.HandleFunc("/two", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><body>page two body</body></html>"))
		})
		server = httptest.NewServer(mux)
		defer server.Close()

		content, err := SourceRouter(server.URL + "/sitemap.xml")
		Expect(err).ToNot(HaveOccurred())
		Expect(content).To(ContainSubstring("page one body"))
		Expect(content).To(ContainSubstring("page two body"))
	})
})
