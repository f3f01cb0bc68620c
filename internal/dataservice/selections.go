package dataservice

import (
	"omnitui/internal/graphql"
	"omnitui/internal/models"
)

var feedItemLabelSelection = graphql.Select("Label", func(f *graphql.Fields) models.FeedItemLabel {
	return models.FeedItemLabel{
		ID:          f.ID("id"),
		Name:        f.String("name"),
		Color:       f.String("color"),
		CreatedAt:   f.OptTime("createdAt"),
		Description: f.OptString("description"),
	}
})

var profileSelection = graphql.Select("Profile", func(f *graphql.Fields) string {
	return f.String("username")
})

var viewerSelection = graphql.Select("User", func(f *graphql.Fields) models.Viewer {
	return models.Viewer{
		ID:       f.ID("id"),
		Name:     f.String("name"),
		Username: graphql.One(f, "profile", profileSelection),
	}
})

var feedItemSelection = graphql.Select("SearchItem", func(f *graphql.Fields) models.FeedItem {
	return models.FeedItem{
		ID:              f.ID("id"),
		Slug:            f.String("slug"),
		Title:           f.String("title"),
		URL:             f.String("url"),
		Author:          deref(f.OptString("author")),
		Description:     deref(f.OptString("description")),
		SavedAt:         f.Time("savedAt"),
		PublishedAt:     f.OptTime("publishedAt"),
		ReadingProgress: f.Float("readingProgressPercent"),
		Labels:          graphql.List(f, "labels", feedItemLabelSelection),
	}
})

type searchEdge struct {
	Cursor string
	Node   models.FeedItem
}

var searchEdgeSelection = graphql.Select("SearchItemEdge", func(f *graphql.Fields) searchEdge {
	return searchEdge{
		Cursor: f.String("cursor"),
		Node:   graphql.One(f, "node", feedItemSelection),
	}
})

type pageInfo struct {
	HasNextPage bool
	EndCursor   string
}

var pageInfoSelection = graphql.Select("PageInfo", func(f *graphql.Fields) pageInfo {
	return pageInfo{
		HasNextPage: f.Bool("hasNextPage"),
		EndCursor:   deref(f.OptString("endCursor")),
	}
})

var searchSuccessSelection = graphql.Select("SearchSuccess", func(f *graphql.Fields) models.Page {
	edges := graphql.List(f, "edges", searchEdgeSelection)
	info := graphql.One(f, "pageInfo", pageInfoSelection)
	page := models.Page{HasNextPage: info.HasNextPage, EndCursor: info.EndCursor}
	for _, e := range edges {
		page.Items = append(page.Items, e.Node)
	}
	return page
})

var articleContentSelection = graphql.Select("Article", func(f *graphql.Fields) string {
	return f.String("content")
})

var articleSuccessSelection = graphql.Select("ArticleSuccess", func(f *graphql.Fields) string {
	return graphql.One(f, "article", articleContentSelection)
})

var labelsSuccessSelection = graphql.Select("LabelsSuccess", func(f *graphql.Fields) []models.FeedItemLabel {
	return graphql.List(f, "labels", feedItemLabelSelection)
})

// SaveResult is returned by SaveURL.
type SaveResult struct {
	URL             string
	ClientRequestID string
}

var saveSuccessSelection = graphql.Select("SaveSuccess", func(f *graphql.Fields) SaveResult {
	return SaveResult{
		URL:             f.String("url"),
		ClientRequestID: f.ID("clientRequestId"),
	}
})

var subscriptionSelection = graphql.Select("Subscription", func(f *graphql.Fields) models.Subscription {
	return models.Subscription{
		ID:   f.ID("id"),
		Name: f.String("name"),
		URL:  deref(f.OptString("url")),
	}
})

var subscribeSuccessSelection = graphql.Select("SubscribeSuccess", func(f *graphql.Fields) []models.Subscription {
	return graphql.List(f, "subscriptions", subscriptionSelection)
})

// result is a decoded "Success | Error" union.
type result[T any] struct {
	ok    *T
	codes *[]string
}

func errorCodesSelection(typeName string) graphql.Selection[[]string] {
	return graphql.Select(typeName, func(f *graphql.Fields) []string {
		return f.Strings("errorCodes")
	})
}

func unionSelection[T any](typeName string, success graphql.Selection[T], errorType string) graphql.Selection[result[T]] {
	failure := errorCodesSelection(errorType)
	return graphql.Select(typeName, func(f *graphql.Fields) result[T] {
		return result[T]{
			ok:    graphql.On(f, success),
			codes: graphql.On(f, failure),
		}
	})
}

var (
	articleResultSelection   = unionSelection("ArticleResult", articleSuccessSelection, "ArticleError")
	labelsResultSelection    = unionSelection("LabelsResult", labelsSuccessSelection, "LabelsError")
	searchResultSelection    = unionSelection("SearchResult", searchSuccessSelection, "SearchError")
	saveResultSelection      = unionSelection("SaveResult", saveSuccessSelection, "SaveError")
	subscribeResultSelection = unionSelection("SubscribeResult", subscribeSuccessSelection, "SubscribeError")
)

var (
	viewerQuery = "query Viewer { me " + viewerSelection.String() + " }"

	articleQuery = "query ArticleContent($username: String!, $slug: String!) { article(username: $username, slug: $slug) " +
		articleResultSelection.String() + " }"

	labelsQuery = "query Labels { labels " + labelsResultSelection.String() + " }"

	searchQuery = "query Search($after: String, $first: Int, $query: String) { search(first: $first, after: $after, query: $query) " +
		searchResultSelection.String() + " }"

	saveURLMutation = "mutation SaveUrl($input: SaveUrlInput!) { saveUrl(input: $input) " +
		saveResultSelection.String() + " }"

	subscribeMutation = "mutation Subscribe($input: SubscribeInput!) { subscribe(input: $input) " +
		subscribeResultSelection.String() + " }"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
