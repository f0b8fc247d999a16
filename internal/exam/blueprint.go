package exam

// Category names, shared across tracks.
const (
	CategoryNumerical     = "Numerical Ability"
	CategoryAnalytical    = "Analytical Ability"
	CategoryClerical      = "Clerical Ability"
	CategoryVerbal        = "Verbal Ability"
	CategoryConstitution  = "Philippine Constitution"
	CategoryRA6713        = "RA 6713"
	CategoryPeaceRights   = "Peace and Human Rights"
	CategoryEnvironmental = "Environmental Management"
	CategoryGeneralInfo   = "General Information"
)

// blueprint fixes the shape of one exam type: its category order, the overall
// question cap, and the time baseline the allocator scales from. The tables
// are intentionally compiled in; they mirror the official exam structure and
// are not user-configurable.
type blueprint struct {
	categories       []string
	overallCap       int
	baselineSeconds  int
	baselineQuestion int
}

var blueprints = map[Type]blueprint{
	TypeProfessional: {
		categories: []string{
			CategoryNumerical,
			CategoryAnalytical,
			CategoryVerbal,
			CategoryConstitution,
			CategoryRA6713,
			CategoryPeaceRights,
			CategoryEnvironmental,
			CategoryGeneralInfo,
		},
		overallCap:       170,
		baselineSeconds:  3*3600 + 10*60,
		baselineQuestion: 170,
	},
	TypeSubProfessional: {
		categories: []string{
			CategoryNumerical,
			CategoryClerical,
			CategoryVerbal,
			CategoryConstitution,
			CategoryRA6713,
			CategoryPeaceRights,
			CategoryEnvironmental,
			CategoryGeneralInfo,
		},
		overallCap:       165,
		baselineSeconds:  2*3600 + 40*60,
		baselineQuestion: 165,
	},
	TypePractice: {
		categories: []string{
			CategoryNumerical,
			CategoryVerbal,
			CategoryConstitution,
			CategoryRA6713,
			CategoryPeaceRights,
			CategoryEnvironmental,
		},
		overallCap: 60,
		// Legacy 20-question practice baseline; the allocator scales it
		// proportionally to the actual draw.
		baselineSeconds:  30 * 60,
		baselineQuestion: 20,
	},
}

// practiceCategoryTarget is the per-category draw for practice mode.
const practiceCategoryTarget = 10

// generalInfoTarget caps General Information regardless of exam type.
const generalInfoTarget = 10

// defaultCategoryTarget is the base draw for every other category on the main
// tracks; the overall cap trims the tail categories down from it.
const defaultCategoryTarget = 25

// Categories returns the fixed category order for an exam type.
func Categories(t Type) ([]string, error) {
	bp, ok := blueprints[t]
	if !ok {
		return nil, ErrUnknownExamType
	}
	out := make([]string, len(bp.categories))
	copy(out, bp.categories)
	return out, nil
}

// categoryTarget is the base number of questions drawn for a category before
// the overall cap is applied.
func categoryTarget(t Type, category string) int {
	if category == CategoryGeneralInfo {
		return generalInfoTarget
	}
	if t == TypePractice {
		return practiceCategoryTarget
	}
	return defaultCategoryTarget
}

// bankFiles maps category names to their question bank file stems.
var bankFiles = map[string]string{
	CategoryNumerical:     "numerical-ability",
	CategoryAnalytical:    "analytical-ability",
	CategoryClerical:      "clerical-ability",
	CategoryVerbal:        "verbal-ability",
	CategoryConstitution:  "philippine-constitution",
	CategoryRA6713:        "ra-6713",
	CategoryPeaceRights:   "peace-human-rights",
	CategoryEnvironmental: "environmental-management",
	CategoryGeneralInfo:   "general-information",
}

// trackDirs maps the two bank-backed tracks to their data subdirectories.
var trackDirs = map[Type]string{
	TypeProfessional:    "pro",
	TypeSubProfessional: "subpro",
}
