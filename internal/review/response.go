package review

// AgentResponse is the structured output every reviewer returns per scene.
// The shape doubles as the JSON schema sent with the request, so every field
// is flat and strict-mode friendly: no maps with free-form keys, no unions.
type AgentResponse struct {
	Reaction string `json:"reaction" jsonschema_description:"Your in-character reaction to this scene, a paragraph or two"`
	Notes    string `json:"notes" jsonschema_description:"Craft-level observations about writing, structure, or production"`

	EmotionalState ReportedEmotion `json:"emotional_state"`

	EntityObservations []EntityObservation `json:"entity_observations" jsonschema_description:"Characters or objects worth tracking after this scene"`
	QuestionsRaised    []RaisedQuestion    `json:"questions_raised" jsonschema_description:"New questions this scene made you ask"`
	QuestionUpdates    []QuestionUpdate    `json:"question_updates" jsonschema_description:"Existing tracked questions this scene touched, answered, or made moot"`
	EmotionalRevisions []EmotionalRevision `json:"emotional_revisions" jsonschema_description:"Earlier scenes this scene made you feel differently about"`
}

type ReportedEmotion struct {
	PrimaryEmotion    string   `json:"primary_emotion" jsonschema_description:"The dominant emotion you feel right now"`
	Intensity         float64  `json:"intensity" jsonschema_description:"How strongly, 0.0 to 1.0"`
	SecondaryEmotions []string `json:"secondary_emotions"`
	Trajectory        string   `json:"trajectory" jsonschema_description:"rising, falling, or stable"`
	Engagement        float64  `json:"engagement" jsonschema_description:"How engaged you are with the script overall, 0.0 to 1.0"`

	CharacterFeelings  []CharacterFeeling `json:"character_feelings"`
	CumulativeFeelings string             `json:"cumulative_feelings" jsonschema_description:"One sentence on how the script has left you feeling so far"`
}

type CharacterFeeling struct {
	Character string `json:"character"`
	Stance    string `json:"stance" jsonschema_description:"rooting_for, suspicious_of, worried_about, indifferent, or annoyed_by"`
}

type EntityObservation struct {
	Name        string `json:"name"`
	Description string `json:"description" jsonschema_description:"Who or what this is, one line"`
	Alias       string `json:"alias" jsonschema_description:"Another name the script uses for this entity, empty if none"`

	MentionedNotPresent bool `json:"mentioned_not_present" jsonschema_description:"True if this entity was only talked about, not in the scene"`
	Foreshadowed        bool `json:"foreshadowed" jsonschema_description:"True if the scene treats this entity as cryptically significant"`

	KeyMoment             string `json:"key_moment" jsonschema_description:"A significant thing that happened to this entity this scene, empty if none"`
	KeyMomentSignificance string `json:"key_moment_significance" jsonschema_description:"low, medium, high, or critical"`

	RelatedTo        string `json:"related_to" jsonschema_description:"Another entity this one has a notable relationship with, empty if none"`
	RelationshipKind string `json:"relationship_kind" jsonschema_description:"e.g. siblings, rivals, partners"`
	RelationshipNote string `json:"relationship_note" jsonschema_description:"Current tension or dynamic"`
}

type RaisedQuestion struct {
	Text            string   `json:"text"`
	NarrativeWeight string   `json:"narrative_weight" jsonschema_description:"low, medium, high, or critical"`
	RelatedEntities []string `json:"related_entities" jsonschema_description:"Entity names this question concerns"`
	Speculation     string   `json:"speculation" jsonschema_description:"Your current guess at the answer, empty if none"`
}

type QuestionUpdate struct {
	QuestionID string `json:"question_id" jsonschema_description:"The tracked question ID, e.g. Q_003"`
	Action     string `json:"action" jsonschema_description:"referenced, answered, or irrelevant"`
	Detail     string `json:"detail" jsonschema_description:"The answer if answered, or why it no longer matters"`
}

type EmotionalRevision struct {
	TargetScene int             `json:"target_scene" jsonschema_description:"The earlier scene you now feel differently about"`
	Reason      string          `json:"reason" jsonschema_description:"What in the current scene changed your read"`
	NewState    ReportedEmotion `json:"new_state"`
}
