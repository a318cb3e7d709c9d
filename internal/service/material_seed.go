package service

import (
	"github.com/google/uuid"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

type seedCategory struct {
	name     string
	subject  models.Subject
	order    int
	parent   string
	problems []models.Problem
}

// starterMaterials builds the default bank with fresh ids and parent links resolved.
func starterMaterials() ([]models.MaterialCategory, []models.Problem) {
	seeds := []seedCategory{
		{name: "Algebra", subject: models.SubjectMath, order: 1},
		{name: "Equations", subject: models.SubjectMath, order: 2, parent: "Algebra", problems: []models.Problem{{
			Question:   "Solve the equation: 2x + 5 = 15",
			Answer:     "x = 5",
			Solution:   strPtr("2x = 15 - 5 = 10; x = 10 / 2 = 5"),
			Difficulty: models.DifficultyEasy,
			Points:     1,
			Tags:       []string{"equations", "algebra"},
		}}},
		{name: "Inequalities", subject: models.SubjectMath, order: 3, parent: "Algebra"},
		{name: "Geometry", subject: models.SubjectMath, order: 4},
		{name: "Planimetry", subject: models.SubjectMath, order: 5, parent: "Geometry", problems: []models.Problem{{
			Question:   "Find the area of a rectangle with sides 5 cm and 8 cm",
			Answer:     "40 cm²",
			Solution:   strPtr("S = a * b = 5 * 8 = 40"),
			Difficulty: models.DifficultyEasy,
			Points:     1,
			Tags:       []string{"geometry", "area"},
		}}},
		{name: "Stereometry", subject: models.SubjectMath, order: 6, parent: "Geometry"},
		{name: "Mechanics", subject: models.SubjectPhysics, order: 1},
		{name: "Kinematics", subject: models.SubjectPhysics, order: 2, parent: "Mechanics", problems: []models.Problem{{
			Question:   "A body moves according to s(t) = 3t² + 2t. Find its velocity at t = 2",
			Answer:     "14 m/s",
			Solution:   strPtr("v(t) = s'(t) = 6t + 2; v(2) = 6*2 + 2 = 14"),
			Difficulty: models.DifficultyMedium,
			Points:     2,
			Tags:       []string{"physics", "kinematics", "derivative"},
		}}},
		{name: "Dynamics", subject: models.SubjectPhysics, order: 3, parent: "Mechanics"},
		{name: "Electricity", subject: models.SubjectPhysics, order: 4},
		{name: "Optics", subject: models.SubjectPhysics, order: 5},
	}

	ids := make(map[string]string, len(seeds))
	categories := make([]models.MaterialCategory, 0, len(seeds))
	var problems []models.Problem
	for _, seed := range seeds {
		id := uuid.NewString()
		ids[string(seed.subject)+"/"+seed.name] = id
		category := models.MaterialCategory{ID: id, Name: seed.name, Subject: seed.subject, Order: seed.order}
		if seed.parent != "" {
			parentID := ids[string(seed.subject)+"/"+seed.parent]
			category.ParentID = &parentID
		}
		categories = append(categories, category)
		for _, problem := range seed.problems {
			problem.ID = uuid.NewString()
			problem.CategoryID = id
			problems = append(problems, problem)
		}
	}
	return categories, problems
}

func strPtr(value string) *string {
	return &value
}
