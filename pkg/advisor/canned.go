package advisor

import (
	"context"
	"strings"
	"time"
)

// Default simulated latencies
const (
	DefaultDiagnoseDelay = 3 * time.Second
	DefaultChatDelay     = time.Second
)

// EarlyBlight is the fixed diagnosis returned by Canned
var EarlyBlight = Diagnosis{
	Disease:     "Early Blight",
	Confidence:  87,
	Severity:    "Moderate",
	Description: "Early blight is a common fungal disease affecting tomato plants, characterized by dark spots with concentric rings on leaves.",
	Treatment: []string{
		"Remove affected leaves immediately",
		"Apply copper-based fungicide",
		"Improve air circulation around plants",
		"Avoid overhead watering",
	},
	Prevention: []string{
		"Plant resistant varieties",
		"Ensure proper spacing between plants",
		"Use drip irrigation instead of sprinklers",
		"Apply mulch to prevent soil splash",
	},
}

// Topic maps trigger phrases to a reply
type Topic struct {
	Name     string
	Keywords []string
	Reply    string
}

// Topics are checked in order; the first topic with a matching phrase wins
var Topics = []Topic{
	{
		Name:     "weight-loss",
		Keywords: []string{"weight loss", "lose weight"},
		Reply:    "For healthy weight loss, I recommend focusing on whole foods from local farms. Include plenty of leafy greens, lean proteins, and seasonal vegetables. A typical day might include: Breakfast - Spinach and mushroom omelet with local herbs, Lunch - Grilled chicken salad with mixed greens from nearby farms, Dinner - Roasted seasonal vegetables with quinoa. Would you like specific meal planning based on your local produce availability?",
	},
	{
		Name:     "blood-sugar",
		Keywords: []string{"diabetes", "blood sugar"},
		Reply:    "For managing blood sugar levels, focus on low-glycemic foods available locally. Fresh vegetables like broccoli, cauliflower, and leafy greens are excellent choices. Pair them with lean proteins and healthy fats. Local berries are great for satisfying sweet cravings while providing fiber and antioxidants. Would you like me to create a week-long meal plan using seasonal produce?",
	},
	{
		Name:     "protein",
		Keywords: []string{"protein", "muscle"},
		Reply:    "Great question about protein! For muscle building and maintenance, aim for 0.8-1g of protein per kg of body weight. Local sources include fresh eggs from free-range chickens, locally caught fish, and farm-fresh dairy. Plant-based options from local farms include legumes, nuts, and seeds. Combining these with seasonal vegetables ensures you get complete amino acid profiles. What's your preferred protein source?",
	},
	{
		Name:     "recipes",
		Keywords: []string{"recipe", "meal"},
		Reply:    "I'd love to suggest some nutritious recipes using local ingredients! Here's a simple, healthy option: 'Farm Fresh Vegetable Stir-Fry' - Use whatever seasonal vegetables are available (bell peppers, zucchini, carrots), add local herbs, garlic, and a protein of choice. Season with olive oil and herbs. This provides vitamins, minerals, and fiber while supporting local agriculture. Would you like more specific recipes based on what's currently in season in your area?",
	},
}

// DefaultReply answers messages that match no topic
const DefaultReply = "That's a great nutrition question! I'd recommend incorporating more fresh, locally-sourced produce into your diet. Local farms often have the freshest, most nutrient-dense options available. Could you tell me more about your specific dietary goals or any health conditions you'd like to address? This will help me provide more targeted nutritional advice."

// Canned is an Advisor with fixed answers
type Canned struct {
	diagnoseDelay time.Duration
	chatDelay     time.Duration
	topics        []Topic
}

// CannedOption configures Canned
type CannedOption func(*Canned)

// WithDelays sets the simulated latencies; zero disables them
func WithDelays(diagnose, chat time.Duration) CannedOption {
	return func(c *Canned) {
		c.diagnoseDelay = diagnose
		c.chatDelay = chat
	}
}

// WithTopics replaces the reply table
func WithTopics(topics []Topic) CannedOption {
	return func(c *Canned) { c.topics = topics }
}

// NewCanned creates a canned advisor with the default delays
func NewCanned(opts ...CannedOption) *Canned {
	c := &Canned{
		diagnoseDelay: DefaultDiagnoseDelay,
		chatDelay:     DefaultChatDelay,
		topics:        Topics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Predict returns EarlyBlight for any valid image
func (c *Canned) Predict(ctx context.Context, img Image) (Diagnosis, error) {
	if err := img.Validate(); err != nil {
		return Diagnosis{}, err
	}
	if err := wait(ctx, c.diagnoseDelay); err != nil {
		return Diagnosis{}, err
	}
	d := EarlyBlight
	d.Treatment = append([]string(nil), EarlyBlight.Treatment...)
	d.Prevention = append([]string(nil), EarlyBlight.Prevention...)
	return d, nil
}

// Chat answers from the topic table
func (c *Canned) Chat(ctx context.Context, message string) (Reply, error) {
	message, err := normalizeMessage(message)
	if err != nil {
		return Reply{}, err
	}
	if err := wait(ctx, c.chatDelay); err != nil {
		return Reply{}, err
	}
	return Reply{Message: Respond(c.topics, message), Source: "canned"}, nil
}

// Respond picks the reply for message from topics
func Respond(topics []Topic, message string) string {
	lower := strings.ToLower(message)
	for _, t := range topics {
		for _, k := range t.Keywords {
			if strings.Contains(lower, k) {
				return t.Reply
			}
		}
	}
	return DefaultReply
}

// wait blocks for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
