package detect

// AudienceDefault is used when a detection request does not name its
// target audience.
const AudienceDefault = "engineers, PMs, founders, and the broader AI / startup community"

// transcriptLimit bounds how much transcript text is embedded in a
// prompt. Longer transcripts are truncated, never sent in full.
const transcriptLimit = 12000

const memePrompt = `You are a meme content strategist for a TikTok/Instagram account targeting %s.

Given this video transcript (with timestamps), identify the %d best meme-worthy moments.

For each moment output:
- timestamp: start time in seconds (float)
- duration: clip length in seconds (8-25)
- caption: exactly 2 lines, max 26 chars per line, punchy and relatable to tech/startup culture
- score: 1-10 meme potential
- why: one sentence on why this works visually/verbally

Rules:
- Caption must use curly apostrophes ’ not straight apostrophes
- Match the ENERGY of the scene, not just the words
- Specific > generic ("Cursor write access to main" beats "using AI tools")
- Think: confessional, cringe-relatable, unhinged if warranted

Transcript:
%s

Return ONLY valid JSON: {"clips": [{...}]}`

const quotePrompt = `You are a content editor finding quotable speaker moments for social media.
Target audience: %s.

Given this transcript (with timestamps), find the %d best standalone quotable moments.

For each moment output:
- timestamp: start time in seconds (float)
- duration: clip length in seconds (10-45)
- quote: the exact quote text (1-3 sentences max)
- score: 1-10 quote quality
- context: one sentence on why this quote is valuable/insightful

Rules:
- Quote must be a complete, standalone thought
- Strong opinions, surprising insights, or punchy takeaways preferred
- No mid-sentence starts or ends

Transcript:
%s

Return ONLY valid JSON: {"clips": [{...}]}`
