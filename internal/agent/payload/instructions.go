package payload

// Instruction texts handed to the text generator. The four-section layout is
// shared by every case-level answer so replies look the same whichever path
// produced them.

const caseResponseInstructions = `Analyze this support case and answer the user's question using these 4 sections:

1. Case Summarization & Contextualization
   - Brief overview of the case type and its current state
   - Customer situation and case history
   - The user's specific question, answered in context

2. Technical Case Summary
   - Issue Type: [Category/Area]
   - Fix Status: [Current status]
   - Validation Status: [Testing/verification state]
   - Current State: [What is happening now]
   - Closure Dependency: [What is needed for closure]

3. Troubleshooting / Resolution Recommendation Steps
   - Specific steps to resolve or progress the case
   - Validation and verification steps
   - Dependencies or prerequisites
   - Actions related to the user's question

4. Action
   - Clear next steps
   - Who should do what
   - Timeline considerations

Always answer the user's question inside this structure. If they asked for status, emphasize status. If they asked about comments, history or feed activity, analyze those items. Use clear section headers.`

const technicalFollowupInstructions = `This is a follow-up on an existing technical case. Answer using these 4 sections:

1. Case Summarization & Contextualization
   - The ongoing case and its current status
   - The customer's follow-up question in context
   - Work already done

2. Technical Case Summary
   - Issue Type: [Firmware/SDK/Runtime/etc.]
   - Fix Status: [Implemented/In Progress/Pending/etc.]
   - Validation Status: [Testing Complete/In Progress/Pending/etc.]
   - Current State: [Monitoring/Closed/Open/etc.]
   - Closure Dependency: [What is needed before closure]

3. Troubleshooting / Resolution Recommendation Steps
   - Review the changes already implemented
   - Verify test results and current status
   - Steps to confirm resolution or next actions
   - Monitoring or validation steps

4. Action
   - Immediate next steps
   - Who acts and when
   - Communication plan for closure
   - Timeline considerations

End with a knowledge article prompt: 'This resolved technical issue can be reused as a reference. Would you like to convert this solution into a Knowledge Article for future cases?'`

const followupAnswerInstructions = `Use the case context and conversation history to answer the user's question. For technical follow-ups, use these 4 sections:

1. Case Summarization & Contextualization
   - Current case status and what has been done
   - Context for the follow-up question

2. Technical Case Summary
   - Issue Type: [Category/Area]
   - Fix Status: [What has been implemented]
   - Validation Status: [Testing/monitoring state]
   - Current State: [Current situation]
   - Closure Dependency: [What is needed for closure]

3. Troubleshooting / Resolution Recommendation Steps
   - Review what has been done
   - Verify the current status
   - Confirm the next steps

4. Action
   - Immediate next steps
   - Timeline for completion
   - Communication plan

If you need more information, ask specific follow-up questions.`

const followupContextInstructions = "Use the case context and conversation history to answer the user's question. If you need more information, ask specific follow-up questions."

const knowledgeArticleInstructions = "Create a knowledge article based on this case data and conversation. Include: title, problem statement, environment, symptoms, root cause, resolution steps, verification steps, and prevention notes."

// Focus hints narrow the four-section answer to what the user asked about.
const (
	FocusStatus   = "Focus on current status information in section 2 (Technical Case Summary) while keeping the full 4-section structure."
	FocusComments = "Focus on the case comments while keeping the full 4-section structure. Analyze the comments in section 1 and list the actions they imply in section 4."
	FocusHistory  = "Focus on the case history and field changes while keeping the full 4-section structure. Analyze the history in section 1 and track progress in section 2."
	FocusFeed     = "Focus on the case feed activity while keeping the full 4-section structure. Analyze the feed in section 1 and surface insights in section 3."
)

func withFocus(base, focus string) string {
	return base + "\n\n" + focus
}
