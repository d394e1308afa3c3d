package compress

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fyerfyer/doc-compression/internal/models"
)

// ContradictionMode 冲突检测模式
type ContradictionMode string

const (
	// PairwiseMode 全量两两比较，O(n²)
	PairwiseMode ContradictionMode = "pairwise"
	// BucketedMode 先按关键词倒排分桶，只比较至少共享一个关键词的条目
	// 共享词全部短于 bucketKeywordMinLen 的条目对会被漏检
	BucketedMode ContradictionMode = "bucketed"
)

// DefaultMinSharedTokens 判定同一话题所需的最少共享词数
// 共享词不过滤停用词，"the of is" 这类重叠也会计入
const DefaultMinSharedTokens = 3

// bucketKeywordMinLen 分桶关键词的最短长度
const bucketKeywordMinLen = 4

// ParseContradictionMode 解析冲突检测模式
func ParseContradictionMode(s string) (ContradictionMode, error) {
	switch m := ContradictionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PairwiseMode, BucketedMode:
		return m, nil
	case "":
		return PairwiseMode, nil
	default:
		return PairwiseMode, fmt.Errorf("unknown contradiction mode: %q", s)
	}
}

// ContradictionDetector 基于共享词和数值差异的启发式冲突检测
type ContradictionDetector struct {
	mode            ContradictionMode
	minSharedTokens int
}

// NewContradictionDetector 创建冲突检测器，默认全量比较
func NewContradictionDetector() *ContradictionDetector {
	return &ContradictionDetector{mode: PairwiseMode, minSharedTokens: DefaultMinSharedTokens}
}

// WithMode 返回使用指定模式的检测器副本
func (d *ContradictionDetector) WithMode(mode ContradictionMode) *ContradictionDetector {
	cp := *d
	cp.mode = mode
	return &cp
}

// WithMinSharedTokens 返回使用指定共享词阈值的检测器副本
func (d *ContradictionDetector) WithMinSharedTokens(n int) *ContradictionDetector {
	cp := *d
	if n > 0 {
		cp.minSharedTokens = n
	}
	return &cp
}

// Mode 返回当前检测模式
func (d *ContradictionDetector) Mode() ContradictionMode {
	return d.mode
}

var (
	wordToken    = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	numericToken = regexp.MustCompile(`\d+(?:,\d{3})*(?:\.\d+)?`)
)

// signature 单个陈述的比较特征
type signature struct {
	words   map[string]struct{}
	numbers []string
}

func newSignature(statement string) signature {
	words := make(map[string]struct{})
	for _, w := range wordToken.FindAllString(strings.ToLower(statement), -1) {
		words[w] = struct{}{}
	}
	return signature{words: words, numbers: numericToken.FindAllString(statement, -1)}
}

// Detect 检测条目列表中的潜在冲突，结果按 (i, j) 字典序排列
// 两两模式直接遍历 i<j，时间为O(n²)，额外内存只有每个条目的特征
func (d *ContradictionDetector) Detect(items []models.ExtractedItem) []models.Contradiction {
	sigs := make([]signature, len(items))
	for i, it := range items {
		sigs[i] = newSignature(it.Statement)
	}

	out := []models.Contradiction{}
	check := func(i, j int) {
		if !d.mightContradict(sigs[i], sigs[j]) {
			return
		}
		a, b := items[i], items[j]
		out = append(out, models.Contradiction{
			Statement1:        a.Statement,
			SourceChunk1:      a.ChunkID,
			Statement2:        b.Statement,
			SourceChunk2:      b.ChunkID,
			ContradictionType: models.ContradictionPotentialConflict,
		})
	}

	if d.mode == BucketedMode {
		for _, p := range bucketedPairs(sigs) {
			check(p[0], p[1])
		}
		return out
	}

	for i := range sigs {
		for j := i + 1; j < len(sigs); j++ {
			check(i, j)
		}
	}
	return out
}

// bucketedPairs 通过关键词倒排索引生成候选对，只有含数值的条目参与
// mightContradict 共享词达到阈值，且双方都含数值并且数值序列不同
func (d *ContradictionDetector) mightContradict(a, b signature) bool {
	if len(a.numbers) == 0 || len(b.numbers) == 0 {
		return false
	}
	shared := 0
	for w := range a.words {
		if _, ok := b.words[w]; ok {
			shared++
		}
	}
	if shared < d.minSharedTokens {
		return false
	}
	return !slices.Equal(a.numbers, b.numbers)
}

// bucketedPairs 通过关键词倒排索引生成候选对，只有含数值的条目参与
func bucketedPairs(sigs []signature) [][2]int {
	buckets := make(map[string][]int)
	for i, s := range sigs {
		if len(s.numbers) == 0 {
			continue
		}
		for w := range s.words {
			if utf8.RuneCountInString(w) < bucketKeywordMinLen || numericToken.MatchString(w) {
				continue
			}
			buckets[w] = append(buckets[w], i)
		}
	}

	seen := make(map[[2]int]struct{})
	var pairs [][2]int
	for _, idx := range buckets {
		for x := 0; x < len(idx); x++ {
			for y := x + 1; y < len(idx); y++ {
				p := [2]int{idx[x], idx[y]}
				if p[0] > p[1] {
					p[0], p[1] = p[1], p[0]
				}
				if _, ok := seen[p]; ok {
					continue
				}
				seen[p] = struct{}{}
				pairs = append(pairs, p)
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}
