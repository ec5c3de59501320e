package driving

import (
	"context"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// FaceSearcher finds cached faces similar to a query face.
type FaceSearcher interface {
	// SearchByImage extracts the query face and scans all channels.
	SearchByImage(ctx context.Context, image []byte, q domain.FaceQuery) (domain.ChannelFaceMatches, error)

	// FindMatches scans all channels with an already extracted descriptor.
	FindMatches(ctx context.Context, descriptor domain.Descriptor, q domain.FaceQuery) (domain.ChannelFaceMatches, error)
}

// TextSearcher finds cached texts mentioning a person.
type TextSearcher interface {
	// Search parses the name query and scans all channels.
	Search(ctx context.Context, rawQuery string, q domain.TextQuery) (domain.ChannelTextMatches, error)
}
