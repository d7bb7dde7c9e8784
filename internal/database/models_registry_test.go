package database

import (
	"testing"

	modelspkg "blogicum/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_CoversBlogEntities(t *testing.T) {
	var hasPost, hasComment, hasCategory, hasLocation, hasImage bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.Post:
			hasPost = true
		case *modelspkg.Comment:
			hasComment = true
		case *modelspkg.Category:
			hasCategory = true
		case *modelspkg.Location:
			hasLocation = true
		case *modelspkg.Image:
			hasImage = true
		}
	}
	require.True(t, hasPost, "PersistentModels should include Post")
	require.True(t, hasComment, "PersistentModels should include Comment")
	require.True(t, hasCategory, "PersistentModels should include Category")
	require.True(t, hasLocation, "PersistentModels should include Location")
	require.True(t, hasImage, "PersistentModels should include Image")
}
