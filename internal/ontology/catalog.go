package ontology

// ============================================================================
// Entity Type Catalog
// ============================================================================

// EntityTypes is the full entity type catalog, keyed by uppercase catalog key.
var EntityTypes = map[string]*EntityType{
	// Core entities
	"PERSON": {
		Name: "person",
		Properties: map[string]PropertyDef{
			"name":        {Type: TypeString, Required: true},
			"role":        {Type: TypeString, Enum: []string{"parent", "child", "guardian", "relative", "other"}},
			"age":         {Type: TypeNumber},
			"birthdate":   {Type: TypeDate},
			"gender":      {Type: TypeString},
			"interests":   {Type: TypeArray},
			"preferences": {Type: TypeObject},
			"avatar":      {Type: TypeString},
			"contact":     {Type: TypeObject},
			"lastUpdate":  {Type: TypeDate},
		},
	},
	"FAMILY": {
		Name: "family",
		Properties: map[string]PropertyDef{
			"name":            {Type: TypeString, Required: true},
			"address":         {Type: TypeObject},
			"formationDate":   {Type: TypeDate},
			"preferences":     {Type: TypeObject},
			"settings":        {Type: TypeObject},
			"culturalContext": {Type: TypeString},
			"lastUpdate":      {Type: TypeDate},
		},
	},
	"EVENT": {
		Name: "event",
		Properties: map[string]PropertyDef{
			"title":       {Type: TypeString, Required: true},
			"description": {Type: TypeString},
			"startDate":   {Type: TypeDate, Required: true},
			"endDate":     {Type: TypeDate},
			"location":    {Type: TypeObject},
			"calendar":    {Type: TypeString},
			"recurrence":  {Type: TypeObject},
			"status":      {Type: TypeString, Enum: []string{"confirmed", "tentative", "cancelled"}},
			"priority":    {Type: TypeNumber},
			"eventType":   {Type: TypeString, Enum: []string{"family", "school", "medical", "activity", "work", "social", "other"}},
			"reminders":   {Type: TypeArray},
			"lastUpdate":  {Type: TypeDate},
		},
	},
	"TASK": {
		Name: "task",
		Properties: map[string]PropertyDef{
			"title":         {Type: TypeString, Required: true},
			"description":   {Type: TypeString},
			"status":        {Type: TypeString, Enum: []string{"pending", "in_progress", "completed", "cancelled"}},
			"dueDate":       {Type: TypeDate},
			"priority":      {Type: TypeNumber},
			"taskType":      {Type: TypeString},
			"weight":        {Type: TypeNumber},
			"estimatedTime": {Type: TypeNumber},
			"actualTime":    {Type: TypeNumber},
			"recurrence":    {Type: TypeObject},
			"taskSequence":  {Type: TypeString},
			"lastUpdate":    {Type: TypeDate},
		},
	},
	"DOCUMENT": {
		Name: "document",
		Properties: map[string]PropertyDef{
			"title":         {Type: TypeString, Required: true},
			"description":   {Type: TypeString},
			"fileType":      {Type: TypeString, Required: true},
			"category":      {Type: TypeString},
			"source":        {Type: TypeString},
			"content":       {Type: TypeString},
			"extractedData": {Type: TypeObject},
			"uri":           {Type: TypeString},
			"creationDate":  {Type: TypeDate},
			"lastUpdate":    {Type: TypeDate},
		},
	},
	"PROVIDER": {
		Name: "provider",
		Properties: map[string]PropertyDef{
			"name":          {Type: TypeString, Required: true},
			"type":          {Type: TypeString, Enum: []string{"medical", "school", "activity", "service", "other"}},
			"contact":       {Type: TypeObject},
			"location":      {Type: TypeObject},
			"specialties":   {Type: TypeArray},
			"rating":        {Type: TypeNumber},
			"relationships": {Type: TypeArray},
			"lastUpdate":    {Type: TypeDate},
		},
	},

	// Extended entities
	"LOCATION": {
		Name: "location",
		Properties: map[string]PropertyDef{
			"name":                 {Type: TypeString, Required: true},
			"address":              {Type: TypeObject},
			"coordinates":          {Type: TypeObject},
			"type":                 {Type: TypeString},
			"frequencyOfVisit":     {Type: TypeNumber},
			"associatedActivities": {Type: TypeArray},
			"lastVisited":          {Type: TypeDate},
			"lastUpdate":           {Type: TypeDate},
		},
	},
	"MEDICATION": {
		Name: "medication",
		Properties: map[string]PropertyDef{
			"name":         {Type: TypeString, Required: true},
			"dosage":       {Type: TypeString},
			"schedule":     {Type: TypeObject},
			"prescribedBy": {Type: TypeString},
			"startDate":    {Type: TypeDate},
			"endDate":      {Type: TypeDate},
			"purpose":      {Type: TypeString},
			"sideEffects":  {Type: TypeArray},
			"instructions": {Type: TypeString},
			"lastUpdate":   {Type: TypeDate},
		},
	},
	"MILESTONE": {
		Name: "milestone",
		Properties: map[string]PropertyDef{
			"title":              {Type: TypeString, Required: true},
			"description":        {Type: TypeString},
			"date":               {Type: TypeDate, Required: true},
			"type":               {Type: TypeString},
			"importance":         {Type: TypeNumber},
			"associatedEntities": {Type: TypeArray},
			"media":              {Type: TypeArray},
			"lastUpdate":         {Type: TypeDate},
		},
	},
	"INTEREST": {
		Name: "interest",
		Properties: map[string]PropertyDef{
			"name":             {Type: TypeString, Required: true},
			"category":         {Type: TypeString},
			"level":            {Type: TypeNumber},
			"since":            {Type: TypeDate},
			"activities":       {Type: TypeArray},
			"relatedInterests": {Type: TypeArray},
			"lastUpdate":       {Type: TypeDate},
		},
	},
	"HABIT": {
		Name: "habit",
		Properties: map[string]PropertyDef{
			"name":        {Type: TypeString, Required: true},
			"description": {Type: TypeString},
			"frequency":   {Type: TypeObject},
			"startDate":   {Type: TypeDate},
			"streakCount": {Type: TypeNumber},
			"category":    {Type: TypeString},
			"triggers":    {Type: TypeArray},
			"successRate": {Type: TypeNumber},
			"lastUpdate":  {Type: TypeDate},
		},
	},
	"METRIC": {
		Name: "metric",
		Properties: map[string]PropertyDef{
			"name":       {Type: TypeString, Required: true},
			"type":       {Type: TypeString, Enum: []string{"scalar", "categorical", "temporal"}},
			"value":      {Type: TypeAny, Required: true},
			"unit":       {Type: TypeString},
			"timestamp":  {Type: TypeDate, Required: true},
			"source":     {Type: TypeString},
			"context":    {Type: TypeObject},
			"lastUpdate": {Type: TypeDate},
		},
	},
	"INSIGHT": {
		Name: "insight",
		Properties: map[string]PropertyDef{
			"title":             {Type: TypeString, Required: true},
			"description":       {Type: TypeString, Required: true},
			"type":              {Type: TypeString},
			"severity":          {Type: TypeNumber},
			"generatedDate":     {Type: TypeDate, Required: true},
			"expirationDate":    {Type: TypeDate},
			"sources":           {Type: TypeArray},
			"confidence":        {Type: TypeNumber},
			"actionable":        {Type: TypeBoolean},
			"suggested_actions": {Type: TypeArray},
			"lastUpdate":        {Type: TypeDate},
		},
	},
	"COMMUNICATION": {
		Name: "communication",
		Properties: map[string]PropertyDef{
			"type":              {Type: TypeString, Enum: []string{"message", "email", "call", "chat", "in_person"}, Required: true},
			"timestamp":         {Type: TypeDate, Required: true},
			"content":           {Type: TypeString},
			"participants":      {Type: TypeArray, Required: true},
			"subject":           {Type: TypeString},
			"sentiment":         {Type: TypeString},
			"extractedEntities": {Type: TypeArray},
			"lastUpdate":        {Type: TypeDate},
		},
	},
	"PREFERENCE": {
		Name: "preference",
		Properties: map[string]PropertyDef{
			"name":       {Type: TypeString, Required: true},
			"value":      {Type: TypeAny, Required: true},
			"category":   {Type: TypeString},
			"strength":   {Type: TypeNumber},
			"lastUpdate": {Type: TypeDate},
		},
	},
}

// ============================================================================
// Relationship Type Catalog
// ============================================================================

// RelationshipTypes is the full relationship type catalog, keyed by uppercase
// catalog key.
var RelationshipTypes = map[string]*RelationshipType{
	// Family relationships
	"MEMBER_OF": {
		Name:   "member_of",
		Source: []string{"PERSON"},
		Target: []string{"FAMILY"},
		Properties: map[string]PropertyDef{
			"role":    {Type: TypeString},
			"since":   {Type: TypeDate},
			"primary": {Type: TypeBoolean},
		},
	},
	"PARENT_OF": {
		Name:   "parent_of",
		Source: []string{"PERSON"},
		Target: []string{"PERSON"},
		Properties: map[string]PropertyDef{
			"type":              {Type: TypeString, Enum: []string{"biological", "adoptive", "step", "guardian"}},
			"primary_caregiver": {Type: TypeBoolean},
		},
	},
	"CHILD_OF": {
		Name:   "child_of",
		Source: []string{"PERSON"},
		Target: []string{"PERSON"},
		Properties: map[string]PropertyDef{
			"type": {Type: TypeString, Enum: []string{"biological", "adopted", "step"}},
		},
	},
	"SIBLING_OF": {
		Name:   "sibling_of",
		Source: []string{"PERSON"},
		Target: []string{"PERSON"},
		Properties: map[string]PropertyDef{
			"type":                 {Type: TypeString, Enum: []string{"full", "half", "step", "adopted"}},
			"influence_type":       {Type: TypeString, Enum: []string{"teacher", "learner", "peer", "mentor"}},
			"influence_strength":   {Type: TypeNumber, Min: bound(0), Max: bound(10)},
			"relationship_quality": {Type: TypeString, Enum: []string{"positive", "neutral", "challenging"}},
			"shared_interests":     {Type: TypeArray},
			"teaching_domains":     {Type: TypeArray},
			"learning_domains":     {Type: TypeArray},
		},
	},

	// Event relationships
	"ATTENDS": {
		Name:   "attends",
		Source: []string{"PERSON"},
		Target: []string{"EVENT"},
		Properties: map[string]PropertyDef{
			"role":       {Type: TypeString},
			"required":   {Type: TypeBoolean},
			"confirmed":  {Type: TypeBoolean},
			"importance": {Type: TypeNumber},
		},
	},
	"HOSTS": {
		Name:   "hosts",
		Source: []string{"PERSON", "PROVIDER"},
		Target: []string{"EVENT"},
		Properties: map[string]PropertyDef{
			"primary": {Type: TypeBoolean},
		},
	},
	"OCCURS_AT": {
		Name:   "occurs_at",
		Source: []string{"EVENT"},
		Target: []string{"LOCATION"},
		Properties: map[string]PropertyDef{
			"confirmed": {Type: TypeBoolean},
		},
	},

	// Task relationships
	"ASSIGNED_TO": {
		Name:   "assigned_to",
		Source: []string{"TASK"},
		Target: []string{"PERSON"},
		Properties: map[string]PropertyDef{
			"assignedDate": {Type: TypeDate},
			"voluntary":    {Type: TypeBoolean},
			"weight":       {Type: TypeNumber},
		},
	},
	"RESPONSIBLE_FOR": {
		Name:   "responsible_for",
		Source: []string{"PERSON"},
		Target: []string{"TASK"},
		Properties: map[string]PropertyDef{
			"primary":            {Type: TypeBoolean},
			"delegation_allowed": {Type: TypeBoolean},
		},
	},
	"RELATED_TO": {
		Name:   "related_to",
		Source: []string{"TASK", "EVENT", "DOCUMENT", "INSIGHT", "MEDICATION", "INTEREST", "HABIT"},
		Target: []string{"TASK", "EVENT", "DOCUMENT", "INSIGHT", "MEDICATION", "INTEREST", "HABIT"},
		Properties: map[string]PropertyDef{
			"type":     {Type: TypeString},
			"strength": {Type: TypeNumber},
		},
	},
	"PREREQUISITE_FOR": {
		Name:   "prerequisite_for",
		Source: []string{"TASK"},
		Target: []string{"TASK"},
		Properties: map[string]PropertyDef{
			"required": {Type: TypeBoolean},
		},
	},

	// Document & provider relationships
	"CREATED_BY": {
		Name:   "created_by",
		Source: []string{"DOCUMENT", "TASK", "EVENT", "INSIGHT"},
		Target: []string{"PERSON", "PROVIDER"},
		Properties: map[string]PropertyDef{
			"date": {Type: TypeDate},
		},
	},
	"REFERENCES": {
		Name:   "references",
		Source: []string{"DOCUMENT", "COMMUNICATION"},
		Target: []string{"PERSON", "EVENT", "TASK", "MEDICATION", "PROVIDER", "LOCATION"},
		Properties: map[string]PropertyDef{
			"context":    {Type: TypeString},
			"confidence": {Type: TypeNumber},
		},
	},
	"PROVIDED_BY": {
		Name:   "provided_by",
		Source: []string{"DOCUMENT", "EVENT", "MEDICATION"},
		Target: []string{"PROVIDER"},
		Properties: map[string]PropertyDef{
			"date": {Type: TypeDate},
		},
	},
	"PROVIDES_CARE_TO": {
		Name:   "provides_care_to",
		Source: []string{"PROVIDER"},
		Target: []string{"PERSON"},
		Properties: map[string]PropertyDef{
			"since":     {Type: TypeDate},
			"role":      {Type: TypeString},
			"specialty": {Type: TypeString},
		},
	},

	// Interest & preference relationships
	"INTERESTED_IN": {
		Name:   "interested_in",
		Source: []string{"PERSON"},
		Target: []string{"INTEREST"},
		Properties: map[string]PropertyDef{
			"level": {Type: TypeNumber},
			"since": {Type: TypeDate},
		},
	},
	"HAS_PREFERENCE": {
		Name:   "has_preference",
		Source: []string{"PERSON", "FAMILY"},
		Target: []string{"PREFERENCE"},
		Properties: map[string]PropertyDef{
			"strength": {Type: TypeNumber},
			"context":  {Type: TypeString},
		},
	},
	"PRACTICES": {
		Name:   "practices",
		Source: []string{"PERSON"},
		Target: []string{"HABIT"},
		Properties: map[string]PropertyDef{
			"consistency": {Type: TypeNumber},
			"since":       {Type: TypeDate},
		},
	},

	// Location relationships
	"FREQUENTS": {
		Name:   "frequents",
		Source: []string{"PERSON", "FAMILY"},
		Target: []string{"LOCATION"},
		Properties: map[string]PropertyDef{
			"frequency":        {Type: TypeNumber},
			"purpose":          {Type: TypeString},
			"regular_schedule": {Type: TypeObject},
		},
	},

	// Medication relationships
	"PRESCRIBED_TO": {
		Name:   "prescribed_to",
		Source: []string{"MEDICATION"},
		Target: []string{"PERSON"},
		Properties: map[string]PropertyDef{
			"start_date": {Type: TypeDate},
			"end_date":   {Type: TypeDate},
			"adherence":  {Type: TypeNumber},
		},
	},

	// Communication relationships
	"PARTICIPATED_IN": {
		Name:   "participated_in",
		Source: []string{"PERSON", "PROVIDER"},
		Target: []string{"COMMUNICATION"},
		Properties: map[string]PropertyDef{
			"role":      {Type: TypeString},
			"sentiment": {Type: TypeString},
		},
	},

	// Metric relationships
	"MEASURED_FOR": {
		Name:   "measured_for",
		Source: []string{"METRIC"},
		Target: []string{"PERSON", "TASK", "HABIT", "FAMILY"},
		Properties: map[string]PropertyDef{
			"context": {Type: TypeString},
		},
	},

	// Insight relationships
	"SUGGESTS": {
		Name:   "suggests",
		Source: []string{"INSIGHT"},
		Target: []string{"TASK", "EVENT", "COMMUNICATION"},
		Properties: map[string]PropertyDef{
			"priority":  {Type: TypeNumber},
			"reasoning": {Type: TypeString},
		},
	},
	"DERIVED_FROM": {
		Name:   "derived_from",
		Source: []string{"INSIGHT"},
		Target: []string{"DOCUMENT", "EVENT", "TASK", "COMMUNICATION", "METRIC"},
		Properties: map[string]PropertyDef{
			"contribution": {Type: TypeNumber},
			"confidence":   {Type: TypeNumber},
		},
	},
	"RELEVANT_TO": {
		Name:   "relevant_to",
		Source: []string{"INSIGHT"},
		Target: []string{"PERSON", "FAMILY"},
		Properties: map[string]PropertyDef{
			"importance": {Type: TypeNumber},
			"actionable": {Type: TypeBoolean},
		},
	},
}

func bound(v float64) *float64 {
	return &v
}
