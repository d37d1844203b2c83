package application

import (
	"context"
	"strings"
	"testing"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestInjectSnippet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	session := &domain.Session{Shop: "acme.myshopify.com", AccessToken: "shpat_test"}

	t.Run("uploads the snippet and anchors the render tag", func(t *testing.T) {
		platform := &fakePlatform{
			themeID: 7,
			assets: map[string]string{
				themeLayoutKey: "<html><head><title>Shop</title>\n</head><body></body></html>",
			},
		}
		service := NewThemeService(platform, zerolog.Nop())

		require.NoError(t, service.InjectSnippet(ctx, session))
		require.Contains(t, platform.assets[snippetKey], "WHOLESALE_TAGS")

		layout := platform.assets[themeLayoutKey]
		require.Contains(t, layout, snippetTag)
		require.Less(t, strings.Index(layout, snippetTag), strings.Index(layout, "</head>"))
	})

	t.Run("idempotent when the tag is already present", func(t *testing.T) {
		layout := "<head>" + snippetTag + "\n</head>"
		platform := &fakePlatform{assets: map[string]string{themeLayoutKey: layout}}
		service := NewThemeService(platform, zerolog.Nop())

		require.NoError(t, service.InjectSnippet(ctx, session))
		require.Equal(t, layout, platform.assets[themeLayoutKey])
		require.Equal(t, 1, strings.Count(platform.assets[themeLayoutKey], snippetTag))
	})

	t.Run("legacy include tag also counts as present", func(t *testing.T) {
		layout := "<head>" + legacyTag + "\n</head>"
		platform := &fakePlatform{assets: map[string]string{themeLayoutKey: layout}}
		service := NewThemeService(platform, zerolog.Nop())

		require.NoError(t, service.InjectSnippet(ctx, session))
		require.NotContains(t, platform.assets[themeLayoutKey], snippetTag)
	})

	t.Run("layout without head anchor fails", func(t *testing.T) {
		platform := &fakePlatform{assets: map[string]string{themeLayoutKey: "<body></body>"}}
		service := NewThemeService(platform, zerolog.Nop())

		require.Error(t, service.InjectSnippet(ctx, session))
	})
}

func TestRemoveSnippet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	session := &domain.Session{Shop: "acme.myshopify.com", AccessToken: "shpat_test"}

	platform := &fakePlatform{
		assets: map[string]string{
			snippetKey:     snippetSource,
			themeLayoutKey: "<head>  " + snippetTag + "\n" + legacyTag + "\n</head>",
		},
	}
	service := NewThemeService(platform, zerolog.Nop())

	require.NoError(t, service.RemoveSnippet(ctx, session))
	require.NotContains(t, platform.assets, snippetKey)
	require.NotContains(t, platform.assets[themeLayoutKey], snippetTag)
	require.NotContains(t, platform.assets[themeLayoutKey], legacyTag)
}
