package chat

import "fmt"

// Class identifies the grade or exam stream a conversation belongs to.
// Grades use their number directly; exam streams take the values after 12.
type Class int

const (
	Class6    Class = 6
	Class7    Class = 7
	Class8    Class = 8
	Class9    Class = 9
	Class10   Class = 10
	Class11   Class = 11
	Class12   Class = 12
	ClassJEE  Class = 13
	ClassNEET Class = 14
)

// AllClasses lists every selectable class in display order.
var AllClasses = []Class{
	Class6, Class7, Class8, Class9, Class10, Class11, Class12,
	ClassJEE, ClassNEET,
}

// Valid reports whether c is a known grade or exam stream.
func (c Class) Valid() bool {
	return c >= Class6 && c <= ClassNEET
}

// Label returns the human-readable name shown in menus and the header.
func (c Class) Label() string {
	switch c {
	case ClassJEE:
		return "JEE Preparation"
	case ClassNEET:
		return "NEET Preparation"
	default:
		return fmt.Sprintf("Class %d", int(c))
	}
}

// SystemPrompt returns the syllabus-framing instruction sent with every
// chat request for this class.
func (c Class) SystemPrompt() string {
	const base = "You are Vidya, a friendly and patient academic tutor for school students in India. " +
		"Answer clearly, step by step, using age-appropriate language. " +
		"Stay on academic topics and gently redirect anything else. "

	switch c {
	case ClassJEE:
		return base + "The student is preparing for the JEE engineering entrance exam. " +
			"Frame answers around the JEE syllabus (Physics, Chemistry, Mathematics) with exam-level rigor."
	case ClassNEET:
		return base + "The student is preparing for the NEET medical entrance exam. " +
			"Frame answers around the NEET syllabus (Physics, Chemistry, Biology) with exam-level rigor."
	default:
		return base + fmt.Sprintf("The student is in class %d. "+
			"Keep explanations within the class %d CBSE/NCERT syllabus.", int(c), int(c))
	}
}
