package sources

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".go": true, ".py": true, ".js": true,
	".ts": true, ".html": true, ".css": true, ".json": true, ".yaml": true,
	".yml": true, ".xml": true, ".sh": true, ".c": true, ".cpp": true,
	".h": true, ".java": true, ".rb": true, ".php": true, ".rs": true,
	".sql": true, ".proto": true, ".toml": true, ".ini": true, ".conf": true,
	".csv": true, ".rst": true, ".tex": true, ".adoc": true,
}

// GetGitRepositoryContent shallow-clones a repository and concatenates its
// text files, each prefixed with its path. An optional base64-encoded SSH
// private key enables cloning private repositories.
func GetGitRepositoryContent(url string, privateKey string) (string, error) {
	tempDir, err := os.MkdirTemp("", "git-source-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tempDir)

	opts := &git.CloneOptions{
		URL:           url,
		Depth:         1,
		SingleBranch:  true,
		ReferenceName: plumbing.HEAD,
	}
	if privateKey != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			return "", err
		}
		auth, err := ssh.NewPublicKeys("git", keyBytes, "")
		if err != nil {
			return "", err
		}
		opts.Auth = auth
	}

	if _, err := git.PlainClone(tempDir, false, opts); err != nil {
		return "", err
	}

	var content strings.Builder
	err = filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		content.WriteString("\n--- File: " + strings.TrimPrefix(path, tempDir+"/") + " ---\n")
		content.Write(data)
		content.WriteString("\n")
		return nil
	})
	if err != nil {
		return "", err
	}

	return content.String(), nil
}
