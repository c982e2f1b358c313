package sentiment

// DefaultLexicon is the built-in Russian term set the service ships with.
// Deployments with a different audience supply their own Lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Positive: []string{
			"спасибо", "круто", "класс", "отлично", "супер", "молодец", "здорово", "прекрасно",
			"замечательно", "восхитительно", "люблю", "нравится", "рад", "счастлив", "весело",
			"хорошо", "лучший", "красиво", "интересно", "удачи", "благодарю", "топ", "огонь",
			"кайф", "респект", "обожаю", "радость", "❤️", "😊", "😍", "🔥", "👍", "💪", "🎉",
		},
		Negative: []string{
			"плохо", "ужас", "отстой", "ненавижу", "грустно", "печально", "злой", "бесит",
			"раздражает", "достало", "надоело", "страшно", "боюсь", "тревожно", "депрессия",
			"одиноко", "больно", "обидно", "несправедливо", "жалко", "устал", "сложно",
			"проблема", "помогите", "sos", "срочно", "кризис", "тяжело", "😢", "😭", "😔", "💔", "😡",
		},
		Urgent: []string{
			"срочно", "помогите", "sos", "помощь", "спасите", "экстренно", "кризис",
			"суицид", "самоубийство", "не хочу жить", "конец", "умереть", "больше не могу",
			"насилие", "бьют", "угрожают", "опасность", "🆘", "⚠️",
		},
	}
}
