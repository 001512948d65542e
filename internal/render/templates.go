package render

// Template is the public-channel layout for one category.
type Template struct {
	// Headline opens the message.
	Headline string

	// Rows are printed in order; fields without a matching row are left out.
	Rows []Row
}

// Row picks one field by label and prints it under a fixed title.
type Row struct {
	// Labels are matched caselessly against the whole field label.
	Labels []string
	Icon   string
	Title  string

	// Contact rows are printed after a blank line, below the body.
	Contact bool
}

// DefaultHeadline opens public messages of categories without a template.
const DefaultHeadline = "📋 <b>New submission</b>"

var studentTemplate = Template{
	Headline: "🎓 <b>Looking for a job or internship</b>",
	Rows: []Row{
		{Labels: []string{"имя и фамилия", "full name"}, Icon: "👤", Title: "Name"},
		{Labels: []string{"кем вы хотите быть?", "desired role"}, Icon: "🎯", Title: "Role"},
		{Labels: []string{"уровень ваших умений", "skill level"}, Icon: "⭐", Title: "Level"},
		{Labels: []string{"с чем работаете/работали", "technologies"}, Icon: "💼", Title: "Technologies"},
		{Labels: []string{"немного о себе?", "about you"}, Icon: "📝", Title: "About"},
		{Labels: []string{"город/страна", "location"}, Icon: "🌍", Title: "Location"},
		{Labels: []string{"e-mail", "email"}, Icon: "📧", Title: "Contact", Contact: true},
		{Labels: []string{"telegram"}, Icon: "💬", Title: "Telegram", Contact: true},
	},
}

var startupTemplate = Template{
	Headline: "🚀 <b>Hiring</b>",
	Rows: []Row{
		{Labels: []string{"название/имя", "company"}, Icon: "🏢", Title: "Company"},
		{Labels: []string{"кого ищите?", "looking for"}, Icon: "🎯", Title: "Looking for"},
		{Labels: []string{"тип сотрудничества", "employment type"}, Icon: "🤝", Title: "Employment"},
		{Labels: []string{"желаемый уровень кандидата", "candidate level"}, Icon: "⭐", Title: "Level"},
		{Labels: []string{"опишите работу/проект и задачи", "project description"}, Icon: "📝", Title: "Description"},
		{Labels: []string{"ключевые слова", "keywords"}, Icon: "🔑", Title: "Key skills"},
		{Labels: []string{"город/страна", "location"}, Icon: "🌍", Title: "Location"},
		{Labels: []string{"e-mail", "email"}, Icon: "📧", Title: "Contact", Contact: true},
		{Labels: []string{"telegram(если есть)", "telegram"}, Icon: "💬", Title: "Telegram", Contact: true},
	},
}

// templates is keyed by normalized category.
var templates = map[string]Template{
	"Студент": studentTemplate,
	"Student": studentTemplate,
	"Стартап": startupTemplate,
	"Startup": startupTemplate,
}

// TemplateFor returns the layout registered for category.
func TemplateFor(category string) (Template, bool) {
	t, ok := templates[category]
	return t, ok
}
