package sources

import (
	"strings"

	"github.com/mudler/xlog"
)

// SourceRouter dispatches a URL to the fetcher that can handle it:
// sitemaps are crawled page by page, git URLs are cloned, everything else
// is fetched as a single web page.
func SourceRouter(url string) (string, error) {
	xlog.Info("Downloading content", "url", url)

	switch {
	case strings.HasSuffix(url, "sitemap.xml"):
		content, err := GetWebSitemapContent(url)
		if err != nil {
			return "", err
		}
		xlog.Info("Downloaded sitemap content", "url", url, "pages", len(content))
		return strings.Join(content, "\n"), nil
	case strings.HasSuffix(url, ".git") || strings.HasPrefix(url, "git@"):
		return GetGitRepositoryContent(url, "")
	}

	return GetWebPage(url)
}
