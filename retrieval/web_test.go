package retrieval

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	errorskg "github.com/sweetpotato0/health-agent/errors"
)

const searchResultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="https://example.com/hypertension">高血压饮食指南</a>
  <a class="result__snippet">低盐饮食有助于控制血压，每日食盐摄入不超过5克。</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/sleep">睡眠健康</a>
  <a class="result__snippet">规律作息能改善睡眠质量。</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/exercise">运动建议</a>
  <a class="result__snippet">每周至少150分钟中等强度运动。</a>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(searchResultsPage))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL), WithMaxResults(2))
	docs, err := d.Search(context.Background(), "高血压 饮食")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "高血压 饮食" {
		t.Fatalf("query = %q, want the raw query", gotQuery)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want max results cap of 2", len(docs))
	}
	if docs[0].Title != "高血压饮食指南" {
		t.Fatalf("Title = %q", docs[0].Title)
	}
	if docs[0].Source != SourceWeb {
		t.Fatalf("Source = %q, want %q", docs[0].Source, SourceWeb)
	}
	if docs[0].Meta["url"] != "https://example.com/hypertension" {
		t.Fatalf("url = %q", docs[0].Meta["url"])
	}
}

func TestDuckDuckGoSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL))
	if _, err := d.Search(context.Background(), "任意查询"); !errors.Is(err, errorskg.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestDuckDuckGoSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><div class='no-results'>nothing</div></body></html>"))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL))
	if _, err := d.Search(context.Background(), "冷门查询"); !errors.Is(err, errorskg.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
