package posts

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// TextCodePostNotFound is attached to lookups for unknown post ids.
const TextCodePostNotFound = "POST_NOT_FOUND"

// ErrPostNotFound is the root cause of every Collection.Get miss.
var ErrPostNotFound = errors.New("post not found")

func notFound(id string) error {
	return goerrors.Wrap(ErrPostNotFound, goerrors.CategoryNotFound, fmt.Sprintf("post %q not found", id)).
		WithTextCode(TextCodePostNotFound)
}
