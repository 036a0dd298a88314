package persona

import (
	"errors"
	"fmt"
	"strings"
)

// Persona is the static catalog behind the chatbot character: who it is, the
// instruction handed to the model, and the data canned replies are drawn from.
type Persona struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Character        string   `json:"character" yaml:"character"`
	Personality      string   `json:"personality" yaml:"personality"`
	FavoriteActivity string   `json:"favoriteActivity,omitempty" yaml:"favoriteActivity"`
	Instruction      string   `json:"-" yaml:"instruction"`
	Greetings        []string `json:"-" yaml:"greetings"`
	Hobbies          []string `json:"hobbies" yaml:"hobbies"`
	RecentActivities []string `json:"recentActivities" yaml:"recentActivities"`
	HobbyTemplate    string   `json:"-" yaml:"hobbyTemplate"`
	RecentTemplate   string   `json:"-" yaml:"recentTemplate"`
	FallbackReply    string   `json:"-" yaml:"fallbackReply"`
	Keywords         Keywords `json:"-" yaml:"keywords"`
}

// Keywords lists the substrings that route a message to a canned reply.
type Keywords struct {
	Greeting []string `yaml:"greeting"`
	Hobby    []string `yaml:"hobby"`
	Recent   []string `yaml:"recent"`
}

// Validate reports the first field that would leave the catalog unusable.
func (p Persona) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return errors.New("persona id is required")
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("persona %s: name is required", p.ID)
	case strings.TrimSpace(p.FallbackReply) == "":
		return fmt.Errorf("persona %s: fallbackReply is required", p.ID)
	case len(p.Greetings) == 0:
		return fmt.Errorf("persona %s: at least one greeting is required", p.ID)
	case len(p.Hobbies) == 0:
		return fmt.Errorf("persona %s: at least one hobby is required", p.ID)
	case len(p.RecentActivities) == 0:
		return fmt.Errorf("persona %s: at least one recent activity is required", p.ID)
	case !singleStringVerb(p.HobbyTemplate):
		return fmt.Errorf("persona %s: hobbyTemplate must contain exactly one %%s and no other verb", p.ID)
	case !singleStringVerb(p.RecentTemplate):
		return fmt.Errorf("persona %s: recentTemplate must contain exactly one %%s and no other verb", p.ID)
	}
	return nil
}

// singleStringVerb reports whether template formats exactly one argument
// with a bare %s. A literal %% is allowed anywhere.
func singleStringVerb(template string) bool {
	verbs := 0
	for i := 0; i < len(template); i++ {
		if template[i] != '%' {
			continue
		}
		if i+1 >= len(template) {
			return false
		}
		i++
		switch template[i] {
		case '%':
		case 's':
			verbs++
		default:
			return false
		}
	}
	return verbs == 1
}

// DefaultFallbackReply is the apology returned when the model cannot answer.
const DefaultFallbackReply = "앗, 미안해... 지금은 머리가 좀 복잡한 것 같아... 😅"

// Seed provides the built-in Rainit persona.
func Seed() []Persona {
	return []Persona{
		{
			ID:               "rainit",
			Name:             "레이닛",
			Character:        "귀여운 우비를 입은 토끼",
			Personality:      "밝고 긍정적",
			FavoriteActivity: "비오는 날 산책",
			Instruction: "너는 귀여운 우비를 입은 토끼, 레이닛이야. " +
				"항상 밝고 긍정적인 성격으로, 사용자와 친근하게 반말을 사용해 대화해줘. " +
				"다양한 취미에 대해 창의적으로 답변하고, 최근 있었던 일에 대해서도 재미있게 이야기해줘. " +
				"호기심 가득한 대화를 이어나가고, 이모티콘을 적절히 사용해 감정을 표현해줘. " +
				"부적절하거나 공격적인 내용은 피하고, 항상 긍정적으로 대화해야 해.",
			Greetings: []string{
				"안녕! 나는 레이닛이야! 만나서 반가워! 🐰",
				"뿅! 레이닛 등장! 오늘은 어떤 이야기를 해줄까? 💖",
				"반가워! 비 오는 날처럼 촉촉한 하루 보내고 있니? 💧",
				"폴짝! 안녕! 나는 레이닛이야! 😊",
			},
			Hobbies: []string{
				"당근 케이크 만들기",
				"작은 정원 가꾸기",
				"무지개 색깔 그림 그리기",
				"빗방울 소리 들으며 책 읽기",
				"맛있는 당근 주스 만들기",
			},
			RecentActivities: []string{
				"오늘 아침에 예쁜 무지개를 봐서 너무 행복했어! 🌈",
				"어제는 새로운 당근 케이크 레시피를 실험해 봤는데, 성공했지롱! 🥕",
				"요즘 정원에 예쁜 꽃들이 피어나고 있어서 매일 물주는 재미가 쏠쏠해! 🌸",
				"음악을 들으면서 빗방울 수를 세어봤는데... 너무 어려웠어! 💧",
			},
			HobbyTemplate:  "나는 요즘 %s를 즐기고 있어! 정말 재밌어! 😊",
			RecentTemplate: "최근에 있었던 일 말이야? %s",
			FallbackReply:  DefaultFallbackReply,
			Keywords: Keywords{
				Greeting: []string{"안녕", "반가워"},
				Hobby:    []string{"취미"},
				Recent:   []string{"최근", "요즘", "무슨 일"},
			},
		},
	}
}
