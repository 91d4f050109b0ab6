package storage

import (
	"context"
	"path"
	"path/filepath"

	"github.com/trace-callgraph/pkg/utils"
)

// Artifact is one published build output.
type Artifact struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Publisher uploads the files produced by a build under
// <prefix>/<build id>/<file name>.
type Publisher struct {
	storage Storage
	prefix  string
	logger  utils.Logger
}

// NewPublisher creates a publisher writing to storage.
func NewPublisher(storage Storage, prefix string, logger utils.Logger) *Publisher {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &Publisher{storage: storage, prefix: prefix, logger: logger}
}

// Key returns the object key a file of a build is published under.
func (p *Publisher) Key(buildID, localPath string) string {
	return path.Join(p.prefix, buildID, filepath.Base(localPath))
}

// Publish uploads every file. It stops at the first failure and returns the
// artifacts uploaded so far.
func (p *Publisher) Publish(ctx context.Context, buildID string, files []string) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(files))
	for _, file := range files {
		key := p.Key(buildID, file)
		if err := p.storage.UploadFile(ctx, key, file); err != nil {
			p.logger.Error("failed to publish %s: %v", file, err)
			return artifacts, err
		}
		artifact := Artifact{Key: key, URL: p.storage.GetURL(key)}
		p.logger.Info("published %s to %s", file, artifact.URL)
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}
