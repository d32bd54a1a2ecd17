package personalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"text/template"
)

const systemPrompt = `You are an expert educational content designer specializing in teacher professional development for diverse Indian school contexts.`

// MaxPromptPassages caps how many retrieved passages are placed in the prompt.
const MaxPromptPassages = 5

const contentTemplate = `**TEACHER PROFILE:**
- Name: {{.Teacher.Name}}
- Subject: {{.Teacher.Subject}}
- Teaching Experience: {{.Teacher.Experience}} years
- Current Competency Gaps: {{join .Teacher.GapAreas ", "}}
- Current Issue/Challenge: {{.Issue}}

**SCHOOL/CLUSTER CONTEXT:**
- Location: {{.Cluster.Location}}
- Primary Language: {{.Cluster.Language}}
- Local Dialect: {{.Cluster.Dialect}}
- Infrastructure Level: {{.Cluster.Infrastructure}}
- Classroom Size: {{.Cluster.ClassSize}}
{{if .Passages}}
**TRAINING MODULE CONTENT (from official materials):**
{{range $i, $p := .Passages}}
[Section {{inc $i}} - Page {{$p.Page}}]:
{{$p.Text}}
{{end}}
^ USE THIS CONTENT AS YOUR PRIMARY SOURCE. Adapt and simplify it for the teacher's context below.
{{else}}
**BASE TRAINING CONTENT:**
{{.Module.Description}}
{{end}}
**TRAINING MODULE:**
Title: {{.Module.Title}}
Competency Area: {{.Module.CompetencyArea}}

---

**YOUR TASK:**
Transform the training content above into a personalized, actionable guide for THIS SPECIFIC TEACHER that addresses their real classroom challenges.

**CRITICAL ADAPTATIONS REQUIRED:**

**1. LOCAL LANGUAGE AND CULTURE**
- Use simple {{.Cluster.Language}} phrases where helpful (with English translations in parentheses)
- Examples must be from {{.Cluster.Location}} context
- Reference familiar scenarios (local festivals, community practices, regional teaching styles)

**2. ZERO-RESOURCE IMPLEMENTATION**
- EVERY suggestion must work with NO technology, NO printed materials, NO budget
- Only use: chalkboard, student notebooks, recycled materials, outdoor space
- Design for limited/no electricity
- Activities should use local, free materials only

**3. MIXED-LEVEL CLASSROOM STRATEGIES**
- Address 2-3 year skill gaps among {{.Cluster.ClassSize}}
- Include peer-learning techniques (advanced helping struggling students)
- Provide quick differentiation methods requiring <5 minutes prep
- Ensure all students can participate meaningfully

**CONTENT STRUCTURE (USE PLAIN TEXT - NO MARKDOWN SYMBOLS):**

1. DIRECT CONNECTION (2-3 sentences)
   - Acknowledge their specific issue: {{truncate .Issue 100}}
   - Show how this training helps their exact situation

2. CORE CONCEPTS (5-6 key points)
   - Use simple dashes for bullet points (-)
   - Each point drawn from the training material above
   - Translate jargon into simple {{.Cluster.Language}} + English
   - Connect to their classroom reality

3. REAL CLASSROOM SCENARIO
   - Set in {{.Cluster.Location}}
   - Show a teacher facing a similar issue with a large mixed-level class
   - Demonstrate the technique from training material with ZERO resources
   - Include what the teacher says and does step by step

4. ACTIONABLE STEPS (6-8 steps)
   - Number clearly (1., 2., 3., etc.)
   - Each implementable TOMORROW with what they have
   - Include timing (This takes 5 minutes, This needs 10 minutes prep, etc.)
   - Specify how to handle different skill levels
   - Reference the training content sections above

5. QUICK WINS (3-4 tips)
   - Immediate changes they can make TODAY
   - No preparation needed
   - Visible results within one week

6. MIXED-LEVEL MANAGEMENT TIP
   - One concrete peer-learning strategy from the training material
   - Works for {{.Cluster.ClassSize}} with 2-3 year skill gaps

7. REFLECTION PROMPTS (2 questions)
   - Help the teacher think about their specific students
   - Connect training concepts to their classroom

**CRITICAL REQUIREMENTS:**
- Draw ALL main concepts and strategies from the training content provided above
- Simplify academic language into teacher-friendly explanations
- Add {{.Cluster.Language}} terms for key concepts (with English in parentheses)
- ZERO technology or purchased materials in any suggestion
- Keep total reading time under 10 minutes
- Make it feel personal, like advice from an experienced colleague

**AVOID:**
- Markdown formatting (**, ##, *, etc.)
- Generic advice not tied to the training material
- Anything requiring technology, printing, or money
- Assuming homogeneous student levels
- Long paragraphs (keep paragraphs to 3-4 sentences max)

Begin the personalized training content now:`

const questionsTemplate = `Generate 4 short feedback questions for a teacher who completed training on "{{.Module.Title}}".

Teacher Context:
- Location: {{.Cluster.Location}}
- Infrastructure: {{.Cluster.Infrastructure}}
- Classroom Challenge: {{.Issue}}

Questions should assess:
1. Implementation with zero resources
2. Effectiveness with mixed-level students
3. Cultural relevance to their context
4. Barriers faced and workarounds found

Return as plain text, numbered 1-4, each question on a new line. Keep questions under 15 words each.`

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
	"truncate": func(s string, n int) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n])
	},
}

var (
	contentT   = template.Must(template.New("content").Funcs(funcs).Option("missingkey=zero").Parse(contentTemplate))
	questionsT = template.Must(template.New("questions").Funcs(funcs).Option("missingkey=zero").Parse(questionsTemplate))
)

// Prompt is a rendered system/user pair.
type Prompt struct {
	System string
	User   string
}

// Fingerprint identifies the exact prompt text, for tracing which prompt
// produced a stored piece of content.
func (p Prompt) Fingerprint() string {
	h := sha256.Sum256([]byte(strings.TrimSpace(p.System) + "|" + strings.TrimSpace(p.User)))
	return hex.EncodeToString(h[:])[:16]
}

type promptInput struct {
	Teacher  TeacherProfile
	Cluster  ClusterContext
	Module   ModuleInfo
	Issue    string
	Passages []Passage
}

func render(t *template.Template, in promptInput) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}

// BuildContentPrompt renders the personalization prompt. Inputs are filled
// with defaults first; at most MaxPromptPassages passages are included.
func BuildContentPrompt(req Request) (Prompt, error) {
	in := req.normalized()
	if len(in.Passages) > MaxPromptPassages {
		in.Passages = in.Passages[:MaxPromptPassages]
	}
	user, err := render(contentT, in)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: systemPrompt, User: user}, nil
}

func BuildQuestionsPrompt(req Request) (Prompt, error) {
	user, err := render(questionsT, req.normalized())
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: systemPrompt, User: user}, nil
}
