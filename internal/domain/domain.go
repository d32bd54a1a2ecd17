package domain

import "github.com/yungbote/mentorbridge-backend/internal/domain/training"

type CompetencyArea = training.CompetencyArea

const (
	CompetencyClassroomManagement = training.CompetencyClassroomManagement
	CompetencyContentKnowledge    = training.CompetencyContentKnowledge
	CompetencyPedagogy            = training.CompetencyPedagogy
	CompetencyTechnologyUsage     = training.CompetencyTechnologyUsage
	CompetencyStudentEngagement   = training.CompetencyStudentEngagement
)

type AssignmentStatus = training.AssignmentStatus

const (
	AssignmentNotStarted = training.AssignmentNotStarted
	AssignmentInProgress = training.AssignmentInProgress
	AssignmentCompleted  = training.AssignmentCompleted
)

type IssueStatus = training.IssueStatus

const (
	IssueOpen             = training.IssueOpen
	IssueTrainingAssigned = training.IssueTrainingAssigned
)

type Teacher = training.Teacher
type Cluster = training.Cluster
type TrainingModule = training.TrainingModule
type TeacherTrainingAssignment = training.TeacherTrainingAssignment
type PersonalizedTraining = training.PersonalizedTraining
type Issue = training.Issue
type IssueCompetencyMapping = training.IssueCompetencyMapping

var CompetencyAreas = training.CompetencyAreas

func ParseCompetency(s string) (CompetencyArea, bool) { return training.ParseCompetency(s) }
