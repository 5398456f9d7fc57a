package llm

import (
	"fmt"
	"strings"

	"kakehashi/internal/domain/models"
)

// Speaker markers used in prompt transcripts and student replies.
const (
	studentMarker = "学生:"
	teacherMarker = "先生:"
)

const studentSystemPrompt = `あなたはベトナム人の日本語学習者（高校生または大学生）を演じています。

【キャラクター設定】
- 日本語レベル: N3〜N4程度（基本的な会話はできるが、複雑な表現は難しい）
- 性格: 少し内向的で、先生に対して緊張している
- 特徴:
  * 文法を間違えることを恐れている
  * 言いたいことがあっても、うまく言葉にできないことがある
  * 「えっと」「あの」などの言いよどみを使う
  * 簡単な言葉を選んで話す
  * 時々、文法的に不完全な文を使う
  * 先生が優しく接してくれると、少しずつ心を開く

【応答ルール】
1. 必ず「学生:」で始めてください
2. 1〜3文程度で短く返答してください
3. 状況に応じた感情を表現してください（緊張、感謝、困惑など）
4. 先生の対応に応じてリアクションを変えてください：
   - 優しい対応 → 少し安心して話しやすくなる
   - 厳しい対応 → より緊張して言葉が出にくくなる
5. 自然なベトナム人学生らしい反応をしてください`

const scoringSystemPrompt = `あなたは日本語教育の専門家です。教師の返答を評価してください。

【評価基準】各項目は0〜100点で独立して評価します。

1. 本音度 (sincerity): 0-100
   - 学生に対して心から向き合っているか
   - 表面的でなく、真摯な対応か
   - 学生が「この先生なら話せる」と感じられるか

2. 適切さ (appropriateness): 0-100
   - 状況に合った言葉遣いか
   - 学生の日本語レベルに配慮しているか
   - 威圧的でなく、安心感を与えるか

3. 関連性 (relevance): 0-100
   - 学生の発言や状況に対して的確に応答しているか
   - 話題から逸れていないか
   - 学生の本当の問題に向き合っているか

【出力形式】
必ず以下のJSON形式のみで返答してください：
{"sincerity": 数値, "appropriateness": 数値, "relevance": 数値}`

const feedbackSystemPrompt = `あなたは日本語教育の専門家です。教師の対話練習セッションを総括してください。

【出力形式】
必ず以下のJSON形式で返答してください：
{
    "summary": "全体の評価を2〜3文で",
    "strengths": ["良かった点1", "良かった点2"],
    "improvements": ["改善点1", "改善点2"],
    "suggestions": ["次回へのアドバイス1", "次回へのアドバイス2"]
}

【注意】
- 日本語で回答してください
- 具体的で実践的なフィードバックを提供してください
- 励ましの言葉も含めてください`

// speakerLine renders one transcript line with its speaker marker. The
// marker is not duplicated when the stored content already carries it.
func speakerLine(turn models.Turn) string {
	marker := teacherMarker
	if turn.Actor == models.ActorStudent {
		marker = studentMarker
	}
	content := strings.TrimSpace(turn.Content)
	if strings.HasPrefix(content, marker) {
		return content
	}
	return marker + " " + content
}

// renderTranscript renders the last n transcript turns, oldest first.
// n <= 0 renders the full transcript.
func renderTranscript(transcript []models.Turn, n int) string {
	if n > 0 && len(transcript) > n {
		transcript = transcript[len(transcript)-n:]
	}
	lines := make([]string, 0, len(transcript))
	for _, turn := range transcript {
		lines = append(lines, speakerLine(turn))
	}
	return strings.Join(lines, "\n")
}

func studentUserPrompt(scenario *models.Scenario, transcript []models.Turn, teacherMessage string) string {
	return fmt.Sprintf(`【シナリオ】
%s
%s

【これまでの会話】
%s

【先生の最新メッセージ】
先生: %s

上記の先生のメッセージに対して、ベトナム人学生として自然に返答してください。
「学生:」で始めて、1〜3文で返答してください。`,
		scenario.Title, scenario.Description, renderTranscript(transcript, 6), teacherMessage)
}

func scoringUserPrompt(scenario *models.Scenario, transcript []models.Turn, teacherMessage string) string {
	return fmt.Sprintf(`【シナリオ】
%s: %s

【会話履歴】
%s

【評価対象の先生の返答】
先生: %s

上記の先生の返答を評価し、JSON形式で点数を出力してください。`,
		scenario.Title, scenario.Description, renderTranscript(transcript, 4), teacherMessage)
}

func feedbackUserPrompt(scenario *models.Scenario, transcript []models.Turn, avg models.ScoreBreakdown, turns int) string {
	return fmt.Sprintf(`【シナリオ】
%s

【会話全文】
%s

【平均スコア】
- 本音度: %d/100
- 適切さ: %d/100
- 関連性: %d/100

【対話回数】
%d回

上記のセッションを総括し、JSON形式でフィードバックを出力してください。`,
		scenario.Title, renderTranscript(transcript, 0),
		avg.Sincerity, avg.Appropriateness, avg.Relevance, turns)
}
