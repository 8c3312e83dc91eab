package main

import (
	"context"
	"fmt"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/database"
	"github.com/associacao-ensino/inscricoes-backend/internal/logger"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
)

// seedCourses is a small catalog for local development. Courses seeded into
// the same pair overlap so the pair has a non-empty common list.
var seedCourses = []model.CreateCourseRequest{
	{
		Code: "enfermagem", Name: "Enfermagem", Group: model.GroupSaude,
		Disciplines: []string{"Anatomia", "Português", "Matemática"},
		Schedule:    model.WeeklySchedule{"segunda": "Anatomia", "terca": "Português", "quinta": "Matemática"},
	},
	{
		Code: "analises-clinicas", Name: "Análises Clínicas", Group: model.GroupSaude,
		Disciplines: []string{"Bioquímica", "Português", "Matemática"},
		Schedule:    model.WeeklySchedule{"segunda": "Bioquímica", "terca": "Português", "quinta": "Matemática"},
	},
	{
		Code: "engenharia-civil", Name: "Engenharia Civil", Group: model.GroupEngenharia,
		Disciplines: []string{"Física", "Desenho Técnico", "Matemática"},
		Schedule:    model.WeeklySchedule{"segunda": "Física", "quarta": "Desenho Técnico", "quinta": "Matemática"},
	},
	{
		Code: "informatica", Name: "Informática", Group: model.GroupTecnologia,
		Disciplines: []string{"Programação", "Física", "Matemática"},
		Schedule:    model.WeeklySchedule{"segunda": "Física", "quarta": "Programação", "quinta": "Matemática"},
	},
	{
		Code: "gestao-empresas", Name: "Gestão de Empresas", Group: model.GroupGestao,
		Disciplines: []string{"Contabilidade", "Português", "Economia"},
		Schedule:    model.WeeklySchedule{"segunda": "Contabilidade", "terca": "Português", "sexta": "Economia"},
	},
}

var seedPairs = []model.CreateClassPairRequest{
	{
		Period:  model.PeriodManha,
		Courses: []string{"enfermagem", "analises-clinicas"},
		ClassA:  model.ClassSpec{RoomCode: "M1-A", Capacity: 40},
		ClassB:  model.ClassSpec{RoomCode: "M1-B", Capacity: 40},
	},
	{
		Period:  model.PeriodTarde,
		Courses: []string{"engenharia-civil", "informatica"},
		ClassA:  model.ClassSpec{RoomCode: "T1-A", Capacity: 35},
		ClassB:  model.ClassSpec{RoomCode: "T1-B", Capacity: 35},
	},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	courseRepo := repository.NewCourseRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	classPairRepo := repository.NewClassPairRepository(pool, classRepo)
	studentRepo := repository.NewStudentRepository(pool)

	// No audit sink: seeded rows are not attributed to a user.
	courseService := service.NewCourseService(courseRepo, nil, log)
	roomService := service.NewRoomService(roomRepo, nil, log)
	workflow := service.NewClassPairWorkflow(classPairRepo, classRepo, studentRepo, courseRepo, roomService, nil, nil, log)

	var caller model.Caller

	fmt.Println("=== Seeding Course Catalog ===")
	created := 0
	for _, req := range seedCourses {
		if _, err := courseService.Create(ctx, caller, req); err != nil {
			if service.KindOf(err) == service.KindConflict {
				fmt.Printf("Course %s already exists, skipping\n", req.Code)
				continue
			}
			log.Fatal().Err(err).Str("codigo", req.Code).Msg("Failed to create course")
		}
		created++
	}
	fmt.Printf("Created %d/%d courses.\n", created, len(seedCourses))

	existing, err := workflow.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list class pairs")
	}
	if len(existing) > 0 {
		fmt.Printf("Found %d class pairs, skipping pair seed.\n", len(existing))
		return
	}

	fmt.Println("=== Seeding Class Pairs ===")
	for _, req := range seedPairs {
		agg, err := workflow.Create(ctx, caller, req)
		if err != nil {
			log.Fatal().Err(err).Strs("cursos", req.Courses).Msg("Failed to create class pair")
		}
		fmt.Printf("Created pair %s with common disciplines %v\n", agg.Name, agg.CommonDisciplines)
	}

	fmt.Println("\nSeed completed!")
}
