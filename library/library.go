package library

import (
	"embed"
	"errors"
	"fmt"
	"path"

	"github.com/jonwraymond/blockpress/block"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/interactivity"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/query"
)

//go:embed blocks/*/block.json
var blocksFS embed.FS

// ErrMissingDependency is returned by render callbacks whose dependency
// was not supplied to Register.
var ErrMissingDependency = errors.New("library: missing dependency")

// Deps are the services the dynamic blocks render with. Any of them may
// be nil; blocks needing a missing service render empty.
type Deps struct {
	Posts         *query.Posts
	Interactivity *interactivity.Store
	Logger        observe.Logger
}

// Names lists the blocks Register adds, in registration order.
var Names = []string{
	"core/paragraph",
	"core/heading",
	"core/group",
	"core/latest-posts",
	"core/disclosure",
}

// Register adds every built-in block to reg. It stops at the first
// failure, leaving the blocks registered before it in place.
func Register(reg *blocktype.Registry, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = observe.NoopLogger()
	}
	dynamic := map[string]blocktype.RenderFunc{
		"core/latest-posts": latestPosts{deps: deps}.render,
		"core/disclosure":   disclosure{deps: deps}.render,
	}

	for _, name := range Names {
		dir := "blocks/" + blockDir(name)
		var opts []blocktype.MetadataOption
		if fn, ok := dynamic[name]; ok {
			opts = append(opts, blocktype.WithRenderCallback(fn))
		}
		if _, err := reg.RegisterFromMetadata(blocksFS, dir, opts...); err != nil {
			return fmt.Errorf("library: register %s: %w", name, err)
		}
	}
	return nil
}

// Metadata returns the embedded block.json of a built-in block.
func Metadata(name string) ([]byte, error) {
	return blocksFS.ReadFile("blocks/" + blockDir(name) + "/" + blocktype.MetadataFile)
}

func blockDir(name string) string {
	return path.Base(block.CanonicalName(name))
}
