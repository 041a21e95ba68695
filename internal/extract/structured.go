package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/standardize"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// StructuredData extracts from JSON-LD blocks embedded in the page. Articles,
// products and recipes map onto posts; anything else is ignored.
func StructuredData(ctx context.Context, doc *goquery.Document, rawURL string) (*model.Candidate, error) {
	var posts []standardize.Post
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			logutil.GetLogger(ctx).Warn("failed to parse json-ld block", zap.Error(err))
			return
		}
		posts = append(posts, parseStructured(data)...)
	})

	var usable []standardize.Post
	for _, post := range posts {
		if len(post.Content) > 100 {
			usable = append(usable, post)
		}
	}
	if len(usable) == 0 {
		return nil, nil
	}
	res := standardize.Posts(usable, rawURL, model.StrategyStructuredData, standardize.ModeFlatWithRoles)
	if res == nil {
		return nil, nil
	}
	return &model.Candidate{
		Source:   model.StrategyStructuredData,
		Metadata: res.Metadata,
		Content:  res.FlatWithRoles,
	}, nil
}

func parseStructured(data interface{}) []standardize.Post {
	switch v := data.(type) {
	case []interface{}:
		var posts []standardize.Post
		for _, item := range v {
			posts = append(posts, parseStructured(item)...)
		}
		return posts
	case map[string]interface{}:
		if post := parseStructuredObject(v); post != nil {
			return []standardize.Post{*post}
		}
	}
	return nil
}

func parseStructuredObject(obj map[string]interface{}) *standardize.Post {
	typ, _ := obj["@type"].(string)
	switch typ {
	case "Article", "NewsArticle", "BlogPosting":
		title := str(obj, "headline")
		if title == "" {
			title = str(obj, "name")
		}
		content := str(obj, "articleBody")
		if content == "" {
			content = str(obj, "description")
		}
		return &standardize.Post{
			Title:       title,
			Content:     content,
			Author:      authorName(obj["author"]),
			PublishedAt: str(obj, "datePublished"),
			URL:         str(obj, "url"),
		}
	case "Product":
		return &standardize.Post{
			Title:   str(obj, "name"),
			Content: str(obj, "description"),
			URL:     str(obj, "url"),
		}
	case "Recipe":
		parts := []string{str(obj, "description")}
		if instructions, ok := obj["recipeInstructions"].([]interface{}); ok {
			var steps []string
			for _, inst := range instructions {
				if m, ok := inst.(map[string]interface{}); ok {
					if text := str(m, "text"); text != "" {
						steps = append(steps, text)
					}
				}
			}
			if len(steps) > 0 {
				parts = append(parts, "Instructions: "+strings.Join(steps, " "))
			}
		}
		if ingredients, ok := obj["recipeIngredient"].([]interface{}); ok {
			var list []string
			for _, ing := range ingredients {
				if s, ok := ing.(string); ok {
					list = append(list, s)
				}
			}
			if len(list) > 0 {
				parts = append(parts, "Ingredients: "+strings.Join(list, ", "))
			}
		}
		var nonEmpty []string
		for _, part := range parts {
			if part != "" {
				nonEmpty = append(nonEmpty, part)
			}
		}
		return &standardize.Post{
			Title:   str(obj, "name"),
			Content: strings.Join(nonEmpty, "\n\n"),
			Author:  authorName(obj["author"]),
			URL:     str(obj, "url"),
		}
	}
	return nil
}

func str(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}

func authorName(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]interface{}:
		return str(v, "name")
	}
	return ""
}
