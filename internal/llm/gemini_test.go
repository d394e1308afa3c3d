package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResponseText 测试只拼接首个候选中的文本片段
func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, ""},
		{
			"joins text parts",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text(" The fee "), genai.Text("is $250. ")}}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
			}},
			"The fee is $250.",
		},
		{
			"skips non-text parts",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{
					genai.Blob{MIMEType: "image/png", Data: []byte{0x89}},
					genai.Text("Due by March 1."),
				}}},
			}},
			"Due by March 1.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, responseText(tt.resp))
		})
	}
}

// TestApplySampling 测试请求参数覆盖客户端默认值后写入模型配置
func TestApplySampling(t *testing.T) {
	model := &genai.GenerativeModel{}
	applySampling(model, resolveSampling(1024, 0.2, []GenerateOption{WithGenerateMaxTokens(4096)}))
	require.NotNil(t, model.MaxOutputTokens)
	require.NotNil(t, model.Temperature)
	assert.Equal(t, int32(4096), *model.MaxOutputTokens)
	assert.Equal(t, float32(0.2), *model.Temperature)

	model = &genai.GenerativeModel{}
	applySampling(model, resolveSampling(0, 0.2, []GenerateOption{WithGenerateTemperature(0.9)}))
	assert.Nil(t, model.MaxOutputTokens)
	require.NotNil(t, model.Temperature)
	assert.Equal(t, float32(0.9), *model.Temperature)
}

// TestGeminiClientConfig 测试默认模型与空提示词，均不发起网络请求
func TestGeminiClientConfig(t *testing.T) {
	_, err := NewGeminiClient(WithAPIKey("   "))
	var llmErr LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeInvalidAPIKey, llmErr.Code)

	client, err := NewGeminiClient(WithAPIKey("key"))
	require.NoError(t, err)
	assert.Equal(t, ModelGeminiFlash, client.Name())

	client, err = NewGeminiClient(WithAPIKey("key"), WithModel("gemini-2.5-pro"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", client.Name())

	_, err = client.Generate(context.Background(), "")
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeEmptyPrompt, llmErr.Code)
}
