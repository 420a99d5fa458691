package domain

// SeedTasks is the starting task list written by Seed.
var SeedTasks = []Task{
	{ID: 1, Text: "Post Marketing Manager response to Justin", Detail: "Already drafted in handoff - paste in leadership channel", XP: 10, Tier: 0},
	{ID: 2, Text: "Respond to Josh re: 4 videos", Detail: "Facebook ads rotation - quick Slack reply with next steps", XP: 10, Tier: 0},
	{ID: 3, Text: "Send Henry's salary agreement to Josh", Detail: "Forward to close out compensation", XP: 10, Tier: 0},
	{ID: 4, Text: "Message Cesar: calculate ROAS", Detail: "Needs Precision access fixed - for marketing meeting", XP: 10, Tier: 0},
	{ID: 5, Text: "Nudge Tommy: document phone sales workflow", Detail: "Off track - due March 15", XP: 10, Tier: 0},
	{ID: 6, Text: "Post January celebration message", Detail: "Celebrate 10 closes on Slack", XP: 10, Tier: 0},
	{ID: 7, Text: "Send Diana's team the videos for ad rotation", Detail: "Drive folder with video assets for Facebook ads", XP: 10, Tier: 0},
	{ID: 8, Text: "Schedule Sales & Membership L10", Detail: "End of month - create calendar invite", XP: 15, Tier: 1},
	{ID: 9, Text: "Schedule Marketing Manager interview", Detail: "1hr block: 30 min Esteban, then Josh + Yesenia if vibe check passes", XP: 15, Tier: 1},
	{ID: 10, Text: "Schedule AI assistant demo for team", Detail: "Pick a day next week", XP: 15, Tier: 1},
	{ID: 11, Text: "Resend 4 bounced emails with corrected addresses", Detail: "Jacob, Rahul, Frank, Mark - addresses in handoff", XP: 20, Tier: 2},
	{ID: 12, Text: "Update Arash Eskandari's profile", Detail: "Quick update in system", XP: 20, Tier: 2},
	{ID: 13, Text: "Plug in February goals in Precision", Detail: "Scorecard data entry", XP: 30, Tier: 3},
	{ID: 14, Text: "Fix Launchpad totals in Precision", Detail: "Inaccurate - need Henry's closes inputted", XP: 30, Tier: 3},
	{ID: 15, Text: "Set up guest tracking process with Cesar", Detail: "Cesar notifies Brett for non-paying invited guest badge prep", XP: 30, Tier: 3},
	{ID: 16, Text: "Add registration step to sales onboarding SOP", Detail: "Cesar registers via Accelerate/Elite form, notifies Brett", XP: 30, Tier: 3},
	{ID: 17, Text: "Complete January end-of-month sales report", Detail: "Post on Slack for sales team - 10 closed, $12,550 Henry revenue", XP: 50, Tier: 4},
	{ID: 18, Text: "Start February weekly sales reports", Detail: "Create template and post first week on Slack", XP: 50, Tier: 4},
	{ID: 19, Text: "Update Marketing Manager role posting", Detail: "Add Yesenia's + Josh's requirement lists into description", XP: 50, Tier: 4},
	{ID: 20, Text: "Feed candidate test results back to AI", Detail: "Build objective scoring system for Marketing Manager candidates", XP: 50, Tier: 4},
	{ID: 21, Text: "Reach out to Viral Coach", Detail: "Content strategy help: only 1,200 views max, no trending sounds, weak CTAs", XP: 50, Tier: 4},
	{ID: 22, Text: "Transfer data to Precision", Detail: "Migrate relevant data into Precision platform", XP: 50, Tier: 4},
	{ID: 23, Text: "Map out July/November guest process", Detail: "Full process design - due April for Cody's team", XP: 50, Tier: 4},
}

// SeedTiers describes the effort tiers used by SeedTasks.
var SeedTiers = []Tier{
	{Index: 0, Name: "Quick Wins", Icon: "⚡", Meta: "Under 5 minutes each - warm up the blade"},
	{Index: 1, Name: "Scheduling", Icon: "📅", Meta: "5-15 minutes each - set the battlefield"},
	{Index: 2, Name: "Quick Tasks", Icon: "💫", Meta: "10-20 minutes each - sharpen the edge"},
	{Index: 3, Name: "Moderate Effort", Icon: "⚙️", Meta: "20-45 minutes each - test your discipline"},
	{Index: 4, Name: "Heavy Lifts", Icon: "🔥", Meta: "45+ minutes each - prove you are Apex"},
}
