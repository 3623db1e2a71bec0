// Package report выводит итоговую статистику звонка: CSV таблица по
// абонентам со строкой средних значений, JSON и текстовая сводка, а
// также HTTP обработчик с отчетом и Prometheus метриками.
package report
