package lexicon

// medicalTerms returns the built-in medical lexicon. Definitions are
// written for roughly a 4th-grade reading level. Weights reflect how
// much trouble each term tends to cause readers in the target
// population, not clinical severity.
func medicalTerms() map[string]Entry {
	return map[string]Entry{
		// Symptoms and sensations
		"nausea":            {Definition: "feeling sick to your stomach", Weight: 0.5},
		"dizziness":         {Definition: "feeling lightheaded or like you might faint", Weight: 0.5},
		"fatigue":           {Definition: "feeling very tired", Weight: 0.4},
		"inflammation":      {Definition: "swelling and redness", Weight: 0.6},
		"symptoms":          {Definition: "signs that something is wrong with your body", Weight: 0.4},
		"drowsiness":        {Definition: "feeling sleepy", Weight: 0.5},
		"palpitations":      {Definition: "feeling your heart beat fast or unevenly", Weight: 0.8},

		// Conditions
		"hypertension":      {Definition: "high blood pressure", Weight: 0.8},
		"diabetes":          {Definition: "a condition where your body has trouble controlling sugar", Weight: 0.5},
		"allergic reactions": {Definition: "when your body reacts badly to something", Weight: 0.5},
		"allergic":          {Definition: "reacting badly to something", Weight: 0.4},
		"infection":         {Definition: "sickness caused by germs", Weight: 0.4},
		"anemia":            {Definition: "not enough healthy red blood cells", Weight: 0.7},

		// Medication and dosing
		"dosage":            {Definition: "how much medicine to take", Weight: 0.6},
		"dose":              {Definition: "one amount of medicine", Weight: 0.4},
		"tablets":           {Definition: "pills", Weight: 0.4},
		"capsules":          {Definition: "pills with medicine inside a shell", Weight: 0.4},
		"prescription":      {Definition: "doctor's order for medicine", Weight: 0.5},
		"side effects":      {Definition: "unwanted things that can happen when you take medicine", Weight: 0.5},
		"contraindication":  {Definition: "a reason you should not take this medicine", Weight: 0.9},
		"contraindicated":   {Definition: "should not be taken", Weight: 0.9},
		"antibiotic":        {Definition: "medicine that fights germs", Weight: 0.5},
		"anticoagulant":     {Definition: "medicine that stops blood clots", Weight: 0.9},
		"intravenous":       {Definition: "given through a needle into a vein", Weight: 0.8},
		"topical":           {Definition: "put on the skin", Weight: 0.6},
		"suppository":       {Definition: "medicine placed in the body, not swallowed", Weight: 0.8},

		// Instructions and clinical verbs
		"administer":        {Definition: "give", Weight: 0.6},
		"monitor":           {Definition: "watch carefully", Weight: 0.5},
		"persist":           {Definition: "continue or keep happening", Weight: 0.5},
		"worsen":            {Definition: "get worse", Weight: 0.4},
		"discontinue":       {Definition: "stop taking", Weight: 0.7},
		"physician":         {Definition: "doctor", Weight: 0.5},
		"pharmacist":        {Definition: "the person at the drug store who prepares medicine", Weight: 0.5},
		"consult":           {Definition: "talk to", Weight: 0.5},
		"exceed":            {Definition: "go over", Weight: 0.5},
		"orally":            {Definition: "by mouth", Weight: 0.6},
		"hydration":         {Definition: "drinking enough water", Weight: 0.5},
		"fasting":           {Definition: "not eating for a while", Weight: 0.4},
	}
}
