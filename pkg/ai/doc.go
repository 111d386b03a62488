// Package ai wraps large language model providers behind one small interface.
//
// AIClient sends a prompt, optionally with binary attachments such as a crop
// photo, and returns the model's text. GeminiClient is the implementation
// used in production:
//
//	client, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{APIKey: key})
//	if err != nil {
//	    return err
//	}
//	resp, err := client.GenerateResponse(ctx, "Which crops tolerate frost?", &ai.GenerationOptions{
//	    Temperature: 0.4,
//	})
//
// Provider failures wrap ErrGenerationFailed.
package ai
