package quiz

const quizPrompt = `Based on the following educational content, generate %d multiple-choice questions.
%s

Content:
%s

Requirements:
- Questions should test deep understanding and critical thinking.
- Each question should have 4 options (A, B, C, D).
- Only one option should be correct.
- **Use Markdown** for the question text and explanation (e.g., bold keywords, code blocks if relevant).
- Include a clear and detailed explanation for the correct answer.

Format your response as a **JSON array** with this structure:
[
  {
    "question": "**Question text** here?",
    "options": [
      {"option": "A", "text": "First option"},
      {"option": "B", "text": "Second option"},
      {"option": "C", "text": "Third option"},
      {"option": "D", "text": "Fourth option"}
    ],
    "correct_answer": "A",
    "explanation": "Explanation of why **A** is correct..."
  }
]

Respond ONLY with the valid JSON array. Do not add any markdown formatting (like ` + "```json" + `) around the response.`
