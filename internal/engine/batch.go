package engine

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/fyerfyer/doc-compression/internal/models"
)

// DefaultBatchConcurrency 批量处理的默认并发数
const DefaultBatchConcurrency = 4

// BatchProcess 并发处理多个文档，结果与输入顺序一致
// 任一文档失败时返回第一个错误
func (e *Engine) BatchProcess(ctx context.Context, docs []string) ([]*models.Result, error) {
	results := make([]*models.Result, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency)

	for i := range docs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.Process(ctx, docs[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// DocumentStats 单个文档的比较统计
type DocumentStats struct {
	TotalItems     int `json:"total_items"`
	Risks          int `json:"risks"`
	Numbers        int `json:"numbers"`
	Contradictions int `json:"contradictions"`
}

// Comparison 两个文档的比较结果
type Comparison struct {
	Document1    DocumentStats `json:"document_1"`
	Document2    DocumentStats `json:"document_2"`
	UniqueToDoc1 []string      `json:"unique_to_doc1"`
	UniqueToDoc2 []string      `json:"unique_to_doc2"`
	CommonItems  []string      `json:"common_items"`
}

// CompareDocuments 分别压缩两个文档，按执行摘要陈述比较差异
// 陈述列表按字典序排序
func (e *Engine) CompareDocuments(ctx context.Context, doc1, doc2 string) (*Comparison, error) {
	results, err := e.BatchProcess(ctx, []string{doc1, doc2})
	if err != nil {
		return nil, err
	}
	r1, r2 := results[0], results[1]

	s1, s2 := summaryStatements(r1), summaryStatements(r2)

	return &Comparison{
		Document1:    statsOf(r1),
		Document2:    statsOf(r2),
		UniqueToDoc1: difference(s1, s2),
		UniqueToDoc2: difference(s2, s1),
		CommonItems:  intersection(s1, s2),
	}, nil
}

func statsOf(r *models.Result) DocumentStats {
	return DocumentStats{
		TotalItems:     r.Metadata.TotalExtractedItems,
		Risks:          len(r.RisksAndConstraints),
		Numbers:        len(r.NumbersAndLimits),
		Contradictions: len(r.Contradictions),
	}
}

func summaryStatements(r *models.Result) map[string]struct{} {
	set := make(map[string]struct{}, len(r.ExecutiveSummary))
	for _, it := range r.ExecutiveSummary {
		set[it.Statement] = struct{}{}
	}
	return set
}

func difference(a, b map[string]struct{}) []string {
	out := []string{}
	for s := range a {
		if _, ok := b[s]; !ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func intersection(a, b map[string]struct{}) []string {
	out := []string{}
	for s := range a {
		if _, ok := b[s]; ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
