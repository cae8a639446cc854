package event

// metaSpec describes the meta contract for one event type.
type metaSpec struct {
	required []string
	optional []string
	// enums restricts named string fields to a closed value set. Enforced
	// by the schema validator in strict mode, not at construction.
	enums map[string][]string
}

// The published per-type meta table. session_start and session_end carry no
// meta at all.
var metaTable = map[Type]metaSpec{
	SessionStart: {},
	SessionEnd:   {},
	Edit: {
		required: []string{"char_delta", "source"},
		optional: []string{"position_start", "position_end"},
		enums: map[string][]string{
			"source": {"human", "ai", "external"},
		},
	},
	Paste: {
		required: []string{"char_count", "source"},
		optional: []string{"position_start", "position_end", "preview"},
		enums: map[string][]string{
			"source": {"external", "ai"},
		},
	},
	AIInteraction: {
		required: []string{"interaction_type", "model", "output_length", "acceptance"},
		optional: []string{"input_preview", "output_preview", "position_start", "position_end"},
		enums: map[string][]string{
			"interaction_type": {"brainstorm", "draft", "paraphrase", "summarize", "expand", "continue"},
			"acceptance":       {"fully_accepted", "partially_accepted", "rejected", "modified"},
		},
	},
	ChatInteraction: {
		required: []string{"message_count", "source_file"},
		optional: []string{"message_preview"},
	},
	FocusChange: {
		required: []string{"duration_ms"},
	},
	Checkpoint: {
		required: []string{"char_count_total"},
		optional: []string{"position", "word_count", "cursor_position"},
	},
}

// RequiredMeta returns the meta fields an event of the given type must
// carry.
func RequiredMeta(typ Type) []string {
	return metaTable[typ].required
}

// OptionalMeta returns the meta fields defined but not required for the
// type.
func OptionalMeta(typ Type) []string {
	return metaTable[typ].optional
}

// KnownMeta reports whether field is defined (required or optional) for the
// type.
func KnownMeta(typ Type, field string) bool {
	spec := metaTable[typ]
	for _, f := range spec.required {
		if f == field {
			return true
		}
	}
	for _, f := range spec.optional {
		if f == field {
			return true
		}
	}
	return false
}

// MetaEnum returns the closed value set for a meta field of the type, or
// nil if the field is free-form.
func MetaEnum(typ Type, field string) []string {
	return metaTable[typ].enums[field]
}
